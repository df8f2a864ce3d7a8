package stamps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// метрики
var (
	outboxDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stamps_outbox_delivered_total",
			Help: "Кол-во доставленных удаленных операций",
		},
		[]string{"kind"},
	)
	outboxFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stamps_outbox_failed_total",
			Help: "Кол-во неудачных попыток доставки",
		},
		[]string{"kind", "result"},
	)
	outboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stamps_outbox_pending",
			Help: "Операции в очереди",
		},
	)
)

var (
	errStaleOwner    = errors.New("effect owner is no longer current")
	errUnknownEffect = errors.New("unknown effect kind")
)

type EffectKind string

const (
	EffectPushProgram    EffectKind = "push_program"
	EffectPushCustomer   EffectKind = "push_customer"
	EffectPushEvent      EffectKind = "push_event"
	EffectDeleteProgram  EffectKind = "delete_program"
	EffectDeleteCustomer EffectKind = "delete_customer"
	EffectUpsertProfile  EffectKind = "upsert_profile"
)

// Удаленная операция, привязанная к пользователю на момент мутации
type Effect struct {
	ID         string
	Kind       EffectKind
	Owner      string
	EntityID   string
	Program    *model.Program
	Customer   *model.Customer
	Event      *model.StampEvent
	Profile    *model.Profile
	Attempts   int
	EnqueuedAt time.Time
}

func ProgramEffect(owner string, p model.Program) Effect {
	return Effect{Kind: EffectPushProgram, Owner: owner, EntityID: p.ID, Program: &p}
}

func CustomerEffect(owner string, c model.Customer) Effect {
	return Effect{Kind: EffectPushCustomer, Owner: owner, EntityID: c.ID, Customer: &c}
}

func EventEffect(owner string, e model.StampEvent) Effect {
	return Effect{Kind: EffectPushEvent, Owner: owner, EntityID: e.ID, Event: &e}
}

func DeleteProgramEffect(owner string, id string) Effect {
	return Effect{Kind: EffectDeleteProgram, Owner: owner, EntityID: id}
}

func DeleteCustomerEffect(owner string, id string) Effect {
	return Effect{Kind: EffectDeleteCustomer, Owner: owner, EntityID: id}
}

func ProfileEffect(owner string, p model.Profile) Effect {
	return Effect{Kind: EffectUpsertProfile, Owner: owner, EntityID: owner, Profile: &p}
}

// Очередь удаленных операций (FIFO)
type Outbox struct {
	mu     sync.Mutex
	queue  []Effect
	signal chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{signal: make(chan struct{}, 1)}
}

func (o *Outbox) Enqueue(effects ...Effect) {
	if len(effects) == 0 {
		return
	}
	o.mu.Lock()
	for _, e := range effects {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.EnqueuedAt.IsZero() {
			e.EnqueuedAt = time.Now()
		}
		o.queue = append(o.queue, e)
	}
	outboxPending.Set(float64(len(o.queue)))
	o.mu.Unlock()

	// не блокируемся, если воркер уже разбужен
	select {
	case o.signal <- struct{}{}:
	default:
	}
}

// Signal fires after each Enqueue.
func (o *Outbox) Signal() <-chan struct{} {
	return o.signal
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Outbox) Pending() []Effect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Effect(nil), o.queue...)
}

// Есть ли недоставленная операция по сущности
func (o *Outbox) HasPending(entityID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.queue {
		if e.EntityID == entityID {
			return true
		}
	}
	return false
}

func (o *Outbox) head() (Effect, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return Effect{}, false
	}
	return o.queue[0], true
}

func (o *Outbox) remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.queue {
		if e.ID == id {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			break
		}
	}
	outboxPending.Set(float64(len(o.queue)))
}

func (o *Outbox) attempted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.queue {
		if o.queue[i].ID == id {
			o.queue[i].Attempts++
			return
		}
	}
}

// Воркер доставки очереди через Reconciler
type Worker struct {
	outbox   *Outbox
	rec      *Reconciler
	identity interf.IdentityProvider
	logger   *zap.Logger
	maxTries uint
	interval time.Duration
	backoff  func() backoff.BackOff
}

func NewWorker(outbox *Outbox, rec *Reconciler, identity interf.IdentityProvider, logger *zap.Logger, maxTries int, interval time.Duration) *Worker {
	if maxTries < 1 {
		maxTries = 1
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		outbox:   outbox,
		rec:      rec,
		identity: identity,
		logger:   logger,
		maxTries: uint(maxTries),
		interval: interval,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Drain delivers queued effects in order. It stops at the first effect that
// still fails after retries; that effect stays queued for the next pass.
func (w *Worker) Drain(ctx context.Context) (delivered int) {
	for {
		if ctx.Err() != nil {
			return delivered
		}
		e, ok := w.outbox.head()
		if !ok {
			return delivered
		}
		err := w.deliverWithRetry(ctx, e)
		switch {
		case err == nil:
			w.outbox.remove(e.ID)
			outboxDelivered.WithLabelValues(string(e.Kind)).Inc()
			delivered++
		case isPermanent(err):
			w.outbox.remove(e.ID)
			outboxFailed.WithLabelValues(string(e.Kind), "dropped").Inc()
			w.logger.Warn("effect dropped",
				zap.String("service", "Outbox"),
				zap.String("kind", string(e.Kind)),
				zap.String("entity", e.EntityID),
				zap.Error(err),
			)
		default:
			outboxFailed.WithLabelValues(string(e.Kind), "retry_later").Inc()
			w.logger.Error("effect delivery failed",
				zap.String("service", "Outbox"),
				zap.String("kind", string(e.Kind)),
				zap.String("entity", e.EntityID),
				zap.Error(err),
			)
			return delivered
		}
	}
}

// Run drains on every enqueue signal and on the ticker until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.outbox.Signal():
			w.Drain(ctx)
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

func (w *Worker) deliverWithRetry(ctx context.Context, e Effect) error {
	op := func() (struct{}, error) {
		w.outbox.attempted(e.ID)
		err := w.deliver(ctx, e)
		if isPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(w.backoff()),
		backoff.WithMaxTries(w.maxTries),
	)
	return err
}

func (w *Worker) deliver(ctx context.Context, e Effect) error {
	if e.Owner == "" {
		return model.ErrNotAuthenticated
	}
	if e.Owner != w.identity.Current() {
		return errStaleOwner
	}
	switch e.Kind {
	case EffectPushProgram:
		_, err := w.rec.pushAs(ctx, e.Owner, model.PushBatch{Programs: []model.Program{*e.Program}})
		return err
	case EffectPushCustomer:
		_, err := w.rec.pushAs(ctx, e.Owner, model.PushBatch{Customers: []model.Customer{*e.Customer}})
		return err
	case EffectPushEvent:
		_, err := w.rec.pushAs(ctx, e.Owner, model.PushBatch{Events: []model.StampEvent{*e.Event}})
		return err
	case EffectDeleteProgram:
		return w.rec.remote.DeleteProgram(ctx, e.Owner, e.EntityID)
	case EffectDeleteCustomer:
		return w.rec.remote.DeleteCustomer(ctx, e.Owner, e.EntityID)
	case EffectUpsertProfile:
		return w.rec.remote.UpsertProfile(ctx, e.Owner, *e.Profile)
	}
	return fmt.Errorf("%w %q", errUnknownEffect, e.Kind)
}

func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, model.ErrNotAuthenticated) ||
		errors.Is(err, errStaleOwner) ||
		errors.Is(err, errUnknownEffect)
}
