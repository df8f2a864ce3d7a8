package stamps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	"go.uber.org/zap"
)

// Локальное хранилище в памяти
type memLocal struct {
	mu       sync.Mutex
	snaps    map[string]model.Snapshot
	meta     map[string]string
	saves    int
	failSave bool
}

func newMemLocal() *memLocal {
	return &memLocal{snaps: map[string]model.Snapshot{}, meta: map[string]string{}}
}

func (m *memLocal) Load(ctx context.Context, key string) (model.PartialSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[key]
	if !ok {
		return model.PartialSnapshot{}, false
	}
	s = s.Clone()
	return model.PartialSnapshot{
		Programs:    s.Programs,
		Customers:   s.Customers,
		Redemptions: s.Redemptions,
		Plan:        &s.Plan,
		Limits:      &s.Limits,
		Profile:     &s.Profile,
	}, true
}

func (m *memLocal) Save(ctx context.Context, key string, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failSave {
		return errors.New("disk full")
	}
	m.snaps[key] = snap.Clone()
	return nil
}

func (m *memLocal) GetMeta(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.meta[key]
	return v, ok
}

func (m *memLocal) SetMeta(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *memLocal) saved(key string) (model.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[key]
	return s, ok
}

func (m *memLocal) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Провайдер пользователя для тестов
type testIdentity struct {
	mu      sync.Mutex
	current string
	subs    []chan string
}

func (i *testIdentity) Current() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

func (i *testIdentity) Subscribe() (<-chan string, func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ch := make(chan string, 4)
	i.subs = append(i.subs, ch)
	return ch, func() {}
}

func (i *testIdentity) set(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = id
	for _, ch := range i.subs {
		ch <- id
	}
}

// Движок с детерминированными id и временем
func newTestEngine(t *testing.T, local *memLocal, outbox *Outbox) *StampsEngine {
	t.Helper()
	e := NewStampsEngine(local, outbox, zap.NewNop())
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	e.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return e
}

func mustProgram(t *testing.T, e *StampsEngine, name string, total int) model.Program {
	t.Helper()
	p, err := e.CreateProgram(context.Background(), model.ProgramInput{Name: name, TotalStamps: total, Reward: "Café grátis", Pin: "1234"})
	if err != nil {
		t.Fatalf("create program %s: %v", name, err)
	}
	return p
}
