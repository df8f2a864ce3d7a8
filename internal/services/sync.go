package stamps

import (
	"context"
	"errors"

	interf "github.com/glkeru/loyalty/stamps/internal/interfaces"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	"go.uber.org/zap"
)

// Реакция на смену пользователя: сброс, локальная загрузка, затем pull
type SessionController struct {
	engine   *StampsEngine
	rec      *Reconciler
	local    interf.LocalStore
	identity interf.IdentityProvider
	logger   *zap.Logger
}

func NewSessionController(engine *StampsEngine, rec *Reconciler, local interf.LocalStore, identity interf.IdentityProvider, logger *zap.Logger) *SessionController {
	return &SessionController{
		engine:   engine,
		rec:      rec,
		local:    local,
		identity: identity,
		logger:   logger,
	}
}

// Run applies the current identity, then every change until ctx is done.
func (s *SessionController) Run(ctx context.Context) {
	changes, cancel := s.identity.Subscribe()
	defer cancel()

	s.Switch(ctx, s.identity.Current())
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-changes:
			if !ok {
				return
			}
			s.Switch(ctx, id)
		}
	}
}

// Switch moves the engine to identity. The in-memory state is reset before
// the new namespace is read; the local snapshot comes first, remote data after.
// A failed refresh keeps the local state and is returned.
func (s *SessionController) Switch(ctx context.Context, identity string) error {
	ns := s.engine.SwitchIdentity(identity)
	s.logger.Info("identity switched", zap.String("namespace", ns))

	if snap, ok := s.local.Load(ctx, ns); ok {
		s.engine.HydrateNamespace(ctx, ns, snap)
	}
	if identity == "" {
		return nil
	}
	if err := s.Refresh(ctx, identity, ns); err != nil {
		s.logger.Error("refresh error",
			zap.String("service", "SessionController"),
			zap.String("namespace", ns),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Refresh applies the remote plan and merges an incremental pull for identity.
// A pull that arrives after the namespace changed is dropped and the
// watermark is cleared so the next pull is full.
func (s *SessionController) Refresh(ctx context.Context, identity string, ns string) error {
	if identity == "" {
		return model.ErrNotAuthenticated
	}
	if err := s.rec.ensureIdentityAs(ctx, identity); err != nil && !errors.Is(err, model.ErrNotAuthenticated) {
		s.logger.Warn("identity record not ensured", zap.Error(err))
	}
	if rec, ok := s.rec.fetchIdentityAs(ctx, identity); ok && s.engine.Namespace() == ns {
		overrides := rec.Overrides
		s.engine.SetPlan(ctx, rec.Plan, &overrides)
	}

	res, err := s.rec.pullAs(ctx, identity, s.rec.lastPullAs(ctx, identity))
	if err != nil {
		return err
	}
	if !s.engine.MergePull(ctx, ns, res) {
		s.rec.ResetWatermark(ctx, identity)
	}
	return nil
}
