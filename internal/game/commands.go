package game

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"warlock-arena/internal/cast"
)

// Command is a client intent queued for the next tick.
type Command interface {
	apply(e *Engine, now time.Time)
}

// CastCommand asks to cast the ability in Slot at Target.
type CastCommand struct {
	Conn   ConnID
	Slot   int
	Target mgl64.Vec3
}

// ReadyCommand toggles the player's ready flag in the lobby.
type ReadyCommand struct {
	Conn ConnID
}

// MoveCommand reports the owning client's simulated position.
type MoveCommand struct {
	Conn     ConnID
	Position mgl64.Vec3
}

// Submit queues cmd for the next tick without blocking.
// Returns false when the inbox is full and the command was dropped.
func (e *Engine) Submit(cmd Command) bool {
	select {
	case e.inbox <- cmd:
		return true
	default:
		inboxDropped.Inc()
		return false
	}
}

// drainInbox applies the commands queued before this tick started.
func (e *Engine) drainInbox(now time.Time) int {
	n := len(e.inbox)
	for i := 0; i < n; i++ {
		cmd := <-e.inbox
		cmd.apply(e, now)
	}
	return n
}

func (c CastCommand) apply(e *Engine, now time.Time) {
	a := e.actorFor(c.Conn)
	if a == nil {
		castDroppedNoActor.Inc()
		return
	}

	reason := a.cast.RequestCast(c.Slot, c.Target)
	if reason != cast.Accepted {
		e.emit(EventTypeCastRejected, string(c.Conn), CastPayload{
			ActorID: a.id.String(),
			Slot:    c.Slot,
			Reason:  reason.String(),
		})
	}
}

func (c ReadyCommand) apply(e *Engine, _ time.Time) {
	e.toggleReady(c.Conn)
}

func (c MoveCommand) apply(e *Engine, _ time.Time) {
	a := e.actorFor(c.Conn)
	if a == nil || !a.Alive() || a.cast.IsCasting() {
		return
	}
	if horizontalDistance(a.position, c.Position) > e.cfg.Match.MaxMoveReport {
		e.log.Debug("move report too far, ignored",
			zap.String("actor", a.id.String()),
			zap.Float64("distance", horizontalDistance(a.position, c.Position)))
		return
	}
	a.position = c.Position
	e.outbound.ActorMoved(a.id, a.position)
}
