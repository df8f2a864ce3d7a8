package stamps

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Источник строк из канала
type chanSource struct {
	rows   chan model.RedemptionRow
	mu     sync.Mutex
	closed int
}

func newChanSource() *chanSource {
	return &chanSource{rows: make(chan model.RedemptionRow)}
}

func (s *chanSource) Next(ctx context.Context) (model.RedemptionRow, error) {
	select {
	case <-ctx.Done():
		return model.RedemptionRow{}, ctx.Err()
	case row, ok := <-s.rows:
		if !ok {
			return model.RedemptionRow{}, io.EOF
		}
		return row, nil
	}
}

func (s *chanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func redeemRow(id, owner, program string) model.RedemptionRow {
	return model.RedemptionRow{
		ID:         id,
		OwnerID:    owner,
		ProgramID:  program,
		CustomerID: "c1",
		Type:       model.EventRedeem,
		CreatedAt:  time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestBridgeHandle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newMemLocal(), NewOutbox())
	e.SwitchIdentity("owner-a")
	p := mustProgram(t, e, "Café", 5)
	b := NewRealtimeBridge(newChanSource(), e, zap.NewNop())

	require.True(t, b.Handle(ctx, redeemRow("r1", "owner-a", p.ID)))
	// повтор
	require.False(t, b.Handle(ctx, redeemRow("r1", "owner-a", p.ID)))
	// чужой владелец
	require.False(t, b.Handle(ctx, redeemRow("r2", "owner-b", p.ID)))

	stamp := redeemRow("r3", "owner-a", p.ID)
	stamp.Type = model.EventStamp
	require.False(t, b.Handle(ctx, stamp))

	broken := redeemRow("", "owner-a", p.ID)
	require.False(t, b.Handle(ctx, broken))

	require.Len(t, e.Snapshot().Redemptions, 1)
}

func TestBridgeIgnoresAnonymous(t *testing.T) {
	e := newTestEngine(t, newMemLocal(), NewOutbox())
	p := mustProgram(t, e, "Café", 5)
	b := NewRealtimeBridge(newChanSource(), e, zap.NewNop())

	require.False(t, b.Handle(context.Background(), redeemRow("r1", "", p.ID)))
	require.Empty(t, e.Snapshot().Redemptions)
}

func TestBridgeRunAndStop(t *testing.T) {
	e := newTestEngine(t, newMemLocal(), NewOutbox())
	e.SwitchIdentity("owner-a")
	p := mustProgram(t, e, "Café", 5)
	src := newChanSource()
	b := NewRealtimeBridge(src, e, zap.NewNop())

	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()

	src.rows <- redeemRow("r1", "owner-a", p.ID)
	require.Eventually(t, func() bool {
		return len(e.Snapshot().Redemptions) == 1
	}, time.Second, 10*time.Millisecond)

	b.Stop()
	<-done
	b.Stop()

	src.mu.Lock()
	defer src.mu.Unlock()
	require.Equal(t, 1, src.closed)
}

func TestBridgeRunEndsOnEOF(t *testing.T) {
	e := newTestEngine(t, newMemLocal(), NewOutbox())
	src := newChanSource()
	close(src.rows)
	b := NewRealtimeBridge(src, e, zap.NewNop())

	finished := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on EOF")
	}
}
