package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Circular buffer size
	MaxEventsPerSec      = 10000                  // Global rate limit
	MaxEventsPerSource   = 100                    // Per-source rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	SourceLimiterCleanup = 5 * time.Minute        // Cleanup interval for source limiters
)

// EventLog is a bounded, rate-limited, append-only JSONL event log.
// Emit never blocks; under pressure the oldest unflushed events are dropped.
type EventLog struct {
	mu        sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64
	readHead  uint64

	globalLimiter  *rate.Limiter
	sourceLimiters sync.Map // map[string]*sourceLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	writer *bufio.Writer
	fileMu sync.Mutex
	log    *zap.Logger

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // Unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog(log *zap.Logger) *EventLog {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
		log:           log.Named("eventlog"),
	}
}

// Start begins the async writer. An empty path keeps events in memory only.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		el.file = file
		el.writer = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	el.log.Info("📝 event log started", zap.String("path", filePath))
	return nil
}

// Stop flushes pending events and closes the file
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		wasRunning := el.running.Swap(false)
		close(el.stopChan)
		if wasRunning {
			el.writerWg.Wait()
		}

		el.fileMu.Lock()
		if el.file != nil {
			if err := el.writer.Flush(); err != nil {
				el.log.Warn("event log flush failed", zap.Error(err))
			}
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event. Returns false if rate limited or not running.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	if event.SourceID != "" && !el.sourceLimiter(event.SourceID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	el.writeHead++
	if el.writeHead-el.readHead > EventBufferSize {
		el.readHead++
		el.droppedCount.Add(1)
	}
	event.Sequence = el.writeHead
	el.buffer[el.writeHead%EventBufferSize] = event
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, now time.Time, tickNum uint64, sourceID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, now, tickNum, sourceID, payload))
}

func (el *EventLog) sourceLimiter(sourceID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.sourceLimiters.Load(sourceID); ok {
		e := v.(*sourceLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sourceLimiterEntry{limiter: rate.NewLimiter(MaxEventsPerSource, MaxEventsPerSource/10)}
	entry.lastUsed.Store(now)
	actual, _ := el.sourceLimiters.LoadOrStore(sourceID, entry)
	return actual.(*sourceLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSourceLimiters()
		}
	}
}

func (el *EventLog) cleanupSourceLimiters() {
	cutoff := time.Now().Add(-SourceLimiterCleanup).UnixNano()
	el.sourceLimiters.Range(func(key, value interface{}) bool {
		if value.(*sourceLimiterEntry).lastUsed.Load() < cutoff {
			el.sourceLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available events from the ring
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

// Recent returns up to n of the newest events still in the ring, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	start := el.writeHead - min(uint64(n), el.writeHead)
	if floor := el.writeHead - min(el.writeHead, EventBufferSize); start < floor {
		start = floor
	}

	out := make([]Event, 0, el.writeHead-start)
	for seq := start + 1; seq <= el.writeHead; seq++ {
		out = append(out, el.buffer[seq%EventBufferSize])
	}
	return out
}

// flushBatch writes events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.writer == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.writer.Write(data)
		el.writer.WriteByte('\n')
	}
	if err := el.writer.Flush(); err != nil {
		el.log.Warn("event log write failed", zap.Error(err))
	}
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.writeHead - el.readHead
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 { return el.droppedCount.Load() }

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 { return el.totalCount.Load() }
