package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	"warlock-arena/internal/catalog"
	"warlock-arena/internal/config"
	"warlock-arena/internal/logging"
	"warlock-arena/internal/replication"
)

var (
	autoCast  bool
	castEvery time.Duration
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Join the lobby and log replicated events",
	Long:  `Observe connects, readies up and logs every cast, warp and audio event it mirrors. With --auto-cast it casts at the nearest other actor.`,
	RunE:  runObserve,
}

func init() {
	observeCmd.Flags().BoolVar(&autoCast, "auto-cast", false, "Cast whenever the advisory check passes")
	observeCmd.Flags().DurationVar(&castEvery, "cast-every", 500*time.Millisecond, "How often to try a cast")
}

// logPresenter logs cosmetic hooks instead of drawing them.
type logPresenter struct {
	log *zap.Logger
}

func (p logPresenter) ChannelBegan(id uuid.UUID, d *ability.Definition) {
	p.log.Info("✨ channel began", zap.Stringer("actor", id), zap.String("ability", d.Name))
}

func (p logPresenter) ChannelEnded(id uuid.UUID, d *ability.Definition) {
	p.log.Info("💨 channel ended", zap.Stringer("actor", id), zap.String("ability", d.Name))
}

func (p logPresenter) ActiveSlotChanged(id uuid.UUID, prev, next int) {
	p.log.Debug("active slot", zap.Stringer("actor", id), zap.Int("prev", prev), zap.Int("next", next))
}

func (p logPresenter) PlayAudio(c *audio.Clip, pos mgl64.Vec3) {
	p.log.Debug("🔊 audio", zap.String("clip", c.Name), zap.Float64s("pos", pos[:]))
}

func (p logPresenter) Warped(id uuid.UUID, pos mgl64.Vec3, forceGround bool) {
	p.log.Info("🌀 warped", zap.Stringer("actor", id), zap.Float64s("pos", pos[:]), zap.Bool("ground", forceGround))
}

func (p logPresenter) KnockedBack(id uuid.UUID, force mgl64.Vec3) {
	p.log.Info("💥 knocked back", zap.Stringer("actor", id), zap.Float64s("force", force[:]))
}

func runObserve(cmd *cobra.Command, args []string) error {
	log, err := logging.New(config.LoggingConfig{Level: logLevel, Development: true})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, err := catalog.Load(catDir, log)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer conn.Close()
	log.Info("🔌 connected", zap.String("url", serverURL))

	var writeMu sync.Mutex
	obs, err := replication.NewObserver(replication.ObserverConfig{
		Abilities: cat.Abilities,
		Clips:     cat.Clips,
		Presenter: logPresenter{log: log},
		Send: func(msg []byte) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return conn.WriteMessage(websocket.TextMessage, msg)
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	readErr := make(chan error, 1)
	go func() {
		readErr <- readMessages(conn, obs)
	}()

	ticker := time.NewTicker(castEvery)
	defer ticker.Stop()

	readied := false
	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 closing")
			writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			writeMu.Unlock()
			return nil
		case err := <-readErr:
			return err
		case <-ticker.C:
			if !obs.Connected() {
				continue
			}
			if !readied {
				if err := obs.Ready(); err != nil {
					return err
				}
				readied = true
				log.Info("🙋 ready", zap.Int("slot", obs.You().Slot))
			}
			if autoCast {
				tryCast(obs, log)
			}
		}
	}
}

func readMessages(conn *websocket.Conn, obs *replication.Observer) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		if err := obs.Handle(msg); err != nil {
			return err
		}
	}
}

// tryCast aims a random castable slot at the nearest other living actor.
func tryCast(obs *replication.Observer, log *zap.Logger) {
	own, ok := obs.Own()
	if !ok || own.Health <= 0 {
		return
	}

	target, found := mgl64.Vec3{}, false
	best := 0.0
	for _, m := range obs.Actors() {
		if m.ID == own.ID || m.Health <= 0 {
			continue
		}
		d := m.Position.Sub(own.Position).Len()
		if !found || d < best {
			target, best, found = m.Position, d, true
		}
	}
	if !found {
		return
	}

	for _, slot := range rand.Perm(len(own.Abilities)) {
		sent, err := obs.TryCast(slot, target)
		if err != nil {
			log.Warn("⚠️ cast request failed", zap.Error(err))
			return
		}
		if sent {
			log.Info("🔥 cast requested", zap.Int("slot", slot), zap.Float64s("target", target[:]))
			return
		}
	}
}
