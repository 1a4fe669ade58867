package game

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	apperrors "warlock-arena/internal/errors"
)

// PlayerDefault is the name and color a lobby slot starts with.
type PlayerDefault struct {
	Name  string
	Color string
}

// PlayerDefaults are assigned by slot index.
var PlayerDefaults = []PlayerDefault{
	{"Red", "#ff0000"},
	{"Blue", "#0000ff"},
	{"Green", "#00ff00"},
	{"Yellow", "#ffeb04"},
	{"Cyan", "#00ffff"},
	{"Grey", "#808080"},
}

func defaultsFor(slot int) PlayerDefault {
	if slot < 0 || slot >= len(PlayerDefaults) {
		return PlayerDefault{Name: "Undefined", Color: "#ffffff"}
	}
	return PlayerDefaults[slot]
}

// Player is a registered lobby slot.
type Player struct {
	Slot  int
	Name  string
	Color string
	Ready bool
	Score int
	Conn  ConnID
}

func (p *Player) view() PlayerView {
	return PlayerView{
		Slot:         p.Slot,
		Name:         p.Name,
		Color:        p.Color,
		Ready:        p.Ready,
		Score:        p.Score,
		ConnectionID: p.Conn,
	}
}

// Join registers conn in the first free lobby slot.
func (e *Engine) Join(conn ConnID) (PlayerView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.join(conn)
}

func (e *Engine) join(conn ConnID) (PlayerView, error) {
	if _, ok := e.connSlots[conn]; ok {
		return PlayerView{}, apperrors.AlreadyExistsf("connection %s already joined", conn)
	}

	slot := -1
	for i, p := range e.players {
		if p == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		e.log.Warn("⚠️ lobby full, rejecting connection", zap.String("conn", string(conn)))
		return PlayerView{}, apperrors.ResourceExhaustedf("lobby full (%d slots)", len(e.players))
	}

	d := defaultsFor(slot)
	p := &Player{Slot: slot, Name: d.Name, Color: d.Color, Conn: conn}
	e.players[slot] = p
	e.connSlots[conn] = slot

	e.emit(EventTypePlayerJoin, string(conn), PlayerPayload{Slot: slot, Name: p.Name, ConnectionID: string(conn)})
	e.log.Info("👤 player joined", zap.String("name", p.Name), zap.Int("slot", slot))
	e.outbound.LobbyChanged(e.lobbyView())

	return p.view(), nil
}

// Leave frees conn's slot. Actors it owned keep running without an owner.
func (e *Engine) Leave(conn ConnID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slot, ok := e.connSlots[conn]
	if !ok {
		return
	}
	p := e.players[slot]
	e.players[slot] = nil
	delete(e.connSlots, conn)

	for _, a := range e.actors {
		if a.owner == slot {
			a.owner = noOwner
		}
	}

	e.emit(EventTypePlayerLeave, string(conn), PlayerPayload{Slot: slot, Name: p.Name, ConnectionID: string(conn)})
	e.log.Info("👋 player left", zap.String("name", p.Name), zap.Int("slot", slot))
	e.outbound.LobbyChanged(e.lobbyView())
}

// StartMatch starts the match regardless of ready state.
func (e *Engine) StartMatch() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != MatchLobby {
		return apperrors.FailedPreconditionf("match already running")
	}
	if e.playerCount() == 0 {
		return apperrors.FailedPreconditionf("no players in lobby")
	}
	return e.startMatch()
}

func (e *Engine) toggleReady(conn ConnID) {
	slot, ok := e.connSlots[conn]
	if !ok || e.state != MatchLobby {
		return
	}
	p := e.players[slot]
	p.Ready = !p.Ready
	e.outbound.LobbyChanged(e.lobbyView())
}

// updateMatch moves between lobby and match.
func (e *Engine) updateMatch() {
	switch e.state {
	case MatchLobby:
		total, ready := 0, 0
		for _, p := range e.players {
			if p == nil {
				continue
			}
			total++
			if p.Ready {
				ready++
			}
		}
		if total > 0 && ready == total {
			if err := e.startMatch(); err != nil {
				e.log.Error("match start failed", zap.Error(err))
			}
		}

	case MatchGame:
		for _, a := range e.actors {
			if a.Alive() {
				return
			}
		}
		e.enterLobby()
	}
}

func (e *Engine) startMatch() error {
	for _, p := range e.players {
		if p != nil {
			p.Ready = false
		}
	}

	spawned := 0
	for _, p := range e.players {
		if p == nil {
			continue
		}
		if _, err := e.spawnActor(p.Slot, "Warlock ("+p.Name+")", p.Color, e.spawnPoint(p.Slot)); err != nil {
			return err
		}
		spawned++
	}

	e.lava.Enable(e.clock.Now())
	e.state = MatchGame

	e.emit(EventTypeMatchStart, "", MatchPayload{Players: spawned})
	e.log.Info("⚔️ match started", zap.Int("players", spawned))
	e.outbound.LobbyChanged(e.lobbyView())
	return nil
}

func (e *Engine) enterLobby() {
	for _, a := range append([]*Actor(nil), e.actors...) {
		e.removeActor(a)
	}
	e.lava.Disable()
	e.outbound.LavaChanged(e.lava.View())
	e.state = MatchLobby

	e.emit(EventTypeMatchEnd, "", MatchPayload{Players: e.playerCount()})
	e.log.Info("🏁 match over, back to lobby")
	e.outbound.LobbyChanged(e.lobbyView())
}

func (e *Engine) spawnPoint(slot int) mgl64.Vec3 {
	n := len(e.players)
	if n == 0 {
		n = 1
	}
	angle := 2 * math.Pi * float64(slot) / float64(n)
	r := e.cfg.Match.SpawnRadius
	return mgl64.Vec3{math.Cos(angle) * r, 0, math.Sin(angle) * r}
}

func (e *Engine) playerKilled(instigator int) {
	if instigator < 0 || instigator >= len(e.players) || e.players[instigator] == nil {
		return
	}
	e.players[instigator].Score++
	e.outbound.LobbyChanged(e.lobbyView())
}

func (e *Engine) playerCount() int {
	n := 0
	for _, p := range e.players {
		if p != nil {
			n++
		}
	}
	return n
}

func (e *Engine) lobbyView() LobbyView {
	v := LobbyView{State: e.state, MaxPlayers: len(e.players), Players: make([]PlayerView, 0, len(e.players))}
	for _, p := range e.players {
		if p != nil {
			v.Players = append(v.Players, p.view())
		}
	}
	return v
}

// scoreboard orders players by score, then slot.
func (e *Engine) scoreboard() []PlayerView {
	out := e.lobbyView().Players
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}
