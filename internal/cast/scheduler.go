package cast

import (
	"bytes"
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// Scheduler holds actor-scoped deadlines that are checked once per tick.
// It is owned by the tick loop and is not safe for concurrent use.
type Scheduler struct {
	queue timerQueue
	seq   uint64
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

type timer struct {
	actor      uuid.UUID
	generation uint64
	deadline   time.Time
	seq        uint64
	fire       func(now time.Time)
}

// Schedule registers fire to run at the first Poll with now >= deadline.
func (s *Scheduler) Schedule(actor uuid.UUID, generation uint64, deadline time.Time, fire func(now time.Time)) {
	s.seq++
	heap.Push(&s.queue, &timer{
		actor:      actor,
		generation: generation,
		deadline:   deadline,
		seq:        s.seq,
		fire:       fire,
	})
}

// Poll fires every due timer in deadline order and returns how many fired.
// Timers are never fired early.
func (s *Scheduler) Poll(now time.Time) int {
	fired := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.deadline.After(now) {
			break
		}
		heap.Pop(&s.queue)
		next.fire(now)
		fired++
	}
	return fired
}

// Cancel drops every pending timer for actor.
func (s *Scheduler) Cancel(actor uuid.UUID) int {
	kept := s.queue[:0]
	dropped := 0
	for _, t := range s.queue {
		if t.actor == actor {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = nil
	}
	s.queue = kept
	heap.Init(&s.queue)
	return dropped
}

// Pending returns the number of timers not yet fired.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// PendingFor returns the number of timers held for actor.
func (s *Scheduler) PendingFor(actor uuid.UUID) int {
	n := 0
	for _, t := range s.queue {
		if t.actor == actor {
			n++
		}
	}
	return n
}

// timerQueue orders by deadline, then actor, then insertion.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if !a.deadline.Equal(b.deadline) {
		return a.deadline.Before(b.deadline)
	}
	if c := bytes.Compare(a.actor[:], b.actor[:]); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) { *q = append(*q, x.(*timer)) }

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
