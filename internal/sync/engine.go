// Package sync pulls the server-side history into the conversation list
// whenever the account becomes ready.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/status"
	"go.uber.org/zap"
)

// Loader reloads the conversation list, merging the remote history.
type Loader interface {
	Load(ctx context.Context) ([]*history.Conversation, error)
}

// Result summarises one sync pass.
type Result struct {
	Conversations int       `json:"conversations"`
	Server        int       `json:"server"`
	At            time.Time `json:"at"`
}

// Engine reacts to session status changes on the bus.
type Engine struct {
	loader Loader
	recon  *Reconciler
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine.
func NewEngine(loader Loader, recon *Reconciler, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		loader: loader,
		recon:  recon,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to session events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("session.", 64)
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for an in-flight pass to end.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	if evt.Kind != bus.KindStatusChanged {
		return
	}
	change, ok := evt.Payload.(status.StatusChange)
	if !ok || change.To != status.Ready {
		return
	}
	if _, err := e.Sync(ctx); err != nil {
		e.logger.Error("history sync failed", zap.Error(err))
	}
}

// Sync reloads the history now and records a checkpoint.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	convs, err := e.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	res := &Result{Conversations: len(convs), At: time.Now()}
	for _, c := range convs {
		if c.Source == history.SourceServer {
			res.Server++
		}
	}
	if e.recon != nil {
		if err := e.recon.Record(res); err != nil {
			e.logger.Warn("record sync checkpoint", zap.Error(err))
		}
	}

	e.logger.Info("history synced",
		zap.Int("conversations", res.Conversations),
		zap.Int("server", res.Server),
	)
	e.bus.Emit(bus.KindHistorySynced, *res)
	return res, nil
}
