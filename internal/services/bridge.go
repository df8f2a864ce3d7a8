package stamps

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	"go.uber.org/zap"
)

// Вставки redemptions с других устройств -> AppendRedemption
type RealtimeBridge struct {
	source interf.RedemptionSource
	engine *StampsEngine
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewRealtimeBridge(source interf.RedemptionSource, engine *StampsEngine, logger *zap.Logger) *RealtimeBridge {
	return &RealtimeBridge{source: source, engine: engine, logger: logger}
}

// Run reads rows until ctx is done, the source is exhausted or Stop is called.
func (b *RealtimeBridge) Run(ctx context.Context) {
	b.mu.Lock()
	if b.stopped || b.done != nil {
		b.mu.Unlock()
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()
	defer close(done)

	for {
		row, err := b.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			b.logger.Error("realtime read error",
				zap.String("service", "RealtimeBridge"),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}
		b.Handle(ctx, row)
	}
}

// Stop returns after the read loop has exited; nothing is dispatched afterwards.
func (b *RealtimeBridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if err := b.source.Close(); err != nil {
		b.logger.Warn("realtime source close", zap.Error(err))
	}
}

// Handle folds one row into the engine. Rows of other owners and
// non-redeem events are ignored.
func (b *RealtimeBridge) Handle(ctx context.Context, row model.RedemptionRow) bool {
	owner := b.engine.Identity()
	if owner == "" || row.OwnerID != owner {
		return false
	}
	red, ok, err := row.ToRedemption()
	if err != nil {
		b.logger.Warn("realtime row rejected", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	return b.engine.AppendRedemption(ctx, red)
}
