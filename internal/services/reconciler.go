package stamps

import (
	"context"
	"errors"
	"fmt"
	"time"

	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("stamps")

// Синхронизация с удаленным хранилищем от имени текущего пользователя
type Reconciler struct {
	remote   interf.RemoteStore
	local    interf.LocalStore
	identity interf.IdentityProvider
	logger   *zap.Logger
	now      func() time.Time
}

func NewReconciler(remote interf.RemoteStore, local interf.LocalStore, identity interf.IdentityProvider, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		remote:   remote,
		local:    local,
		identity: identity,
		logger:   logger,
		now:      time.Now,
	}
}

// log
func (r *Reconciler) Log(msg string, service string, err error) {
	r.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// Pull returns rows changed after since (all rows when since is nil).
// Anonymous callers get an empty result. On success the caller's watermark
// moves to the client clock, not to the newest row.
func (r *Reconciler) Pull(ctx context.Context, since *time.Time) (model.PullResult, error) {
	return r.pullAs(ctx, r.identity.Current(), since)
}

func (r *Reconciler) pullAs(ctx context.Context, owner string, since *time.Time) (model.PullResult, error) {
	if owner == "" {
		return model.PullResult{PulledAt: r.now()}, nil
	}

	ctx, span := tracer.Start(ctx, "reconciler.pull")
	defer span.End()
	span.SetAttributes(attribute.Bool("incremental", since != nil))

	res, err := r.remote.Pull(ctx, owner, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pull failed")
		r.Log("Pull error", "Pull", err)
		return model.PullResult{}, fmt.Errorf("pull: %w", err)
	}
	res.PulledAt = r.now()
	span.SetAttributes(
		attribute.Int("programs", len(res.Programs)),
		attribute.Int("customers", len(res.Customers)),
		attribute.Int("redemptions", len(res.Redemptions)),
	)

	err = r.local.SetMeta(ctx, model.LastPullKey(owner), res.PulledAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		r.Log("Watermark save error", "Pull", err)
	}
	return res, nil
}

// Инкрементальный pull от сохраненного водяного знака, без него - полный
func (r *Reconciler) PullSinceLast(ctx context.Context) (model.PullResult, error) {
	owner := r.identity.Current()
	return r.pullAs(ctx, owner, r.lastPullAs(ctx, owner))
}

func (r *Reconciler) LastPull(ctx context.Context) *time.Time {
	return r.lastPullAs(ctx, r.identity.Current())
}

func (r *Reconciler) lastPullAs(ctx context.Context, owner string) *time.Time {
	if owner == "" {
		return nil
	}
	val, ok := r.local.GetMeta(ctx, model.LastPullKey(owner))
	if !ok || val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		r.logger.Warn("watermark ignored", zap.String("value", val), zap.Error(err))
		return nil
	}
	return &t
}

// Сброс водяного знака: следующий pull будет полным
func (r *Reconciler) ResetWatermark(ctx context.Context, owner string) {
	if owner == "" {
		return
	}
	if err := r.local.SetMeta(ctx, model.LastPullKey(owner), ""); err != nil {
		r.Log("Watermark reset error", "ResetWatermark", err)
	}
}

// Push upserts programs, then customers, then appends events.
// A failing step returns the rows acknowledged so far together with the error.
func (r *Reconciler) Push(ctx context.Context, batch model.PushBatch) (model.PushResult, error) {
	owner := r.identity.Current()
	if owner == "" {
		return model.PushResult{}, model.ErrNotAuthenticated
	}
	return r.pushAs(ctx, owner, batch)
}

func (r *Reconciler) pushAs(ctx context.Context, owner string, batch model.PushBatch) (res model.PushResult, err error) {
	ctx, span := tracer.Start(ctx, "reconciler.push")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "push failed")
		}
		span.End()
	}()

	if len(batch.Programs) > 0 {
		res.Programs, err = r.remote.PushPrograms(ctx, owner, batch.Programs)
		if err != nil {
			return res, fmt.Errorf("push programs: %w", err)
		}
	}
	if len(batch.Customers) > 0 {
		res.Customers, err = r.remote.PushCustomers(ctx, owner, batch.Customers)
		if err != nil {
			return res, fmt.Errorf("push customers: %w", err)
		}
	}
	if len(batch.Events) > 0 {
		res.Events, err = r.remote.PushEvents(ctx, owner, batch.Events)
		if err != nil {
			return res, fmt.Errorf("push events: %w", err)
		}
	}
	res.PushedAt = r.now()
	if err := r.local.SetMeta(ctx, model.LastPushKey(owner), res.PushedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		r.Log("Watermark save error", "Push", err)
	}
	return res, nil
}

func (r *Reconciler) DeleteProgram(ctx context.Context, id string) error {
	owner := r.identity.Current()
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	return r.remote.DeleteProgram(ctx, owner, id)
}

func (r *Reconciler) DeleteCustomer(ctx context.Context, id string) error {
	owner := r.identity.Current()
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	return r.remote.DeleteCustomer(ctx, owner, id)
}

func (r *Reconciler) UpsertProfile(ctx context.Context, profile model.Profile) error {
	owner := r.identity.Current()
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	return r.remote.UpsertProfile(ctx, owner, profile)
}

// Запись пользователя. Нет записи или ошибка - ok=false, план не трогаем.
func (r *Reconciler) FetchIdentityRecord(ctx context.Context) (model.IdentityRecord, bool) {
	return r.fetchIdentityAs(ctx, r.identity.Current())
}

func (r *Reconciler) fetchIdentityAs(ctx context.Context, owner string) (model.IdentityRecord, bool) {
	if owner == "" {
		return model.IdentityRecord{}, false
	}
	rec, err := r.remote.GetIdentityRecord(ctx, owner)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			r.Log("Identity record error", "FetchIdentityRecord", err)
		}
		return model.IdentityRecord{}, false
	}
	return rec, true
}

// Создает запись на бесплатном тарифе, если ее нет
func (r *Reconciler) EnsureIdentityRecord(ctx context.Context) error {
	return r.ensureIdentityAs(ctx, r.identity.Current())
}

func (r *Reconciler) ensureIdentityAs(ctx context.Context, owner string) error {
	if owner == "" {
		return model.ErrNotAuthenticated
	}
	_, err := r.remote.GetIdentityRecord(ctx, owner)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err := r.remote.CreateIdentityRecord(ctx, owner, model.PlanFreemium); err != nil {
		return fmt.Errorf("create identity record: %w", err)
	}
	return nil
}
