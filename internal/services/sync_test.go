package stamps

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type syncFixture struct {
	remote   *MockRemoteStore
	local    *memLocal
	identity *testIdentity
	engine   *StampsEngine
	ctl      *SessionController
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &syncFixture{
		remote:   NewMockRemoteStore(ctrl),
		local:    newMemLocal(),
		identity: &testIdentity{},
	}
	f.engine = newTestEngine(t, f.local, NewOutbox())
	rec := newTestReconciler(t, f.remote, f.local, f.identity)
	f.ctl = NewSessionController(f.engine, rec, f.local, f.identity, zap.NewNop())
	return f
}

// без записи пользователя и без новых строк
func (f *syncFixture) quietRemote(owner string) {
	f.remote.EXPECT().GetIdentityRecord(gomock.Any(), owner).Return(model.IdentityRecord{ID: owner, Plan: model.PlanFreemium}, nil).AnyTimes()
	f.remote.EXPECT().Pull(gomock.Any(), owner, gomock.Any()).Return(model.PullResult{}, nil).AnyTimes()
}

func TestSwitchDoesNotLeakBetweenIdentities(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	f.quietRemote("A")
	f.quietRemote("B")

	threePrograms := DefaultSnapshot()
	threePrograms.Programs = []model.Program{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	require.NoError(t, f.local.Save(ctx, model.NamespaceKey("A"), threePrograms))

	f.identity.set("A")
	require.NoError(t, f.ctl.Switch(ctx, "A"))
	require.Len(t, f.engine.Snapshot().Programs, 3)

	f.identity.set("B")
	require.NoError(t, f.ctl.Switch(ctx, "B"))
	require.Empty(t, f.engine.Snapshot().Programs)

	// namespace A не затронут
	saved, ok := f.local.saved(model.NamespaceKey("A"))
	require.True(t, ok)
	require.Len(t, saved.Programs, 3)
}

func TestSwitchToAnonymousSkipsRemote(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	anon := DefaultSnapshot()
	anon.Programs = []model.Program{{ID: "local"}}
	require.NoError(t, f.local.Save(ctx, model.AnonNamespace, anon))

	require.NoError(t, f.ctl.Switch(ctx, ""))
	require.Equal(t, model.AnonNamespace, f.engine.Namespace())
	require.Len(t, f.engine.Snapshot().Programs, 1)
}

func TestRefreshAppliesPlanAndPull(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	f.identity.set("A")

	rec := model.IdentityRecord{ID: "A", Plan: model.PlanStart, Overrides: model.LimitOverrides{MaxCustomersPerProgram: 50}}
	f.remote.EXPECT().GetIdentityRecord(gomock.Any(), "A").Return(rec, nil).Times(2)
	f.remote.EXPECT().Pull(gomock.Any(), "A", gomock.Nil()).Return(model.PullResult{
		Programs:  []model.Program{{ID: "p1", Name: "Café", TotalStamps: 10, Pin: "1234"}},
		Customers: []model.Customer{{ID: "c1", Name: "Ana", Phone: "61981101086", ProgramID: "p1"}},
	}, nil)

	require.NoError(t, f.ctl.Switch(ctx, "A"))

	s := f.engine.Snapshot()
	require.Equal(t, model.PlanStart, s.Plan)
	require.Equal(t, model.Limits{MaxPrograms: 5, MaxCustomersPerProgram: 50}, s.Limits)
	require.Len(t, s.Programs, 1)
	require.Len(t, s.Customers, 1)

	v, ok := f.local.GetMeta(ctx, model.LastPullKey("A"))
	require.True(t, ok)
	require.Equal(t, clock.Format(time.RFC3339Nano), v)
}

func TestSwitchReturnsRefreshError(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	f.identity.set("A")

	saved := DefaultSnapshot()
	saved.Programs = []model.Program{{ID: "a1"}}
	require.NoError(t, f.local.Save(ctx, model.NamespaceKey("A"), saved))

	pullErr := errors.New("connection refused")
	f.remote.EXPECT().GetIdentityRecord(gomock.Any(), "A").Return(model.IdentityRecord{ID: "A", Plan: model.PlanFreemium}, nil).AnyTimes()
	f.remote.EXPECT().Pull(gomock.Any(), "A", gomock.Any()).Return(model.PullResult{}, pullErr)

	require.ErrorIs(t, f.ctl.Switch(ctx, "A"), pullErr)
	// локальные данные остаются
	require.Len(t, f.engine.Snapshot().Programs, 1)
}

func TestRefreshCreatesMissingRecord(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	gomock.InOrder(
		f.remote.EXPECT().GetIdentityRecord(gomock.Any(), "A").Return(model.IdentityRecord{}, model.ErrNotFound),
		f.remote.EXPECT().CreateIdentityRecord(gomock.Any(), "A", model.PlanFreemium).Return(nil),
		f.remote.EXPECT().GetIdentityRecord(gomock.Any(), "A").Return(model.IdentityRecord{ID: "A", Plan: model.PlanFreemium}, nil),
	)
	f.remote.EXPECT().Pull(gomock.Any(), "A", gomock.Any()).Return(model.PullResult{}, nil)

	ns := f.engine.SwitchIdentity("A")
	require.NoError(t, f.ctl.Refresh(ctx, "A", ns))
	require.Equal(t, model.PlanFreemium, f.engine.Snapshot().Plan)
}

func TestRefreshDiscardsStalePull(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	f.remote.EXPECT().GetIdentityRecord(gomock.Any(), "A").Return(model.IdentityRecord{ID: "A", Plan: model.PlanPro}, nil).AnyTimes()

	nsA := f.engine.SwitchIdentity("A")
	f.remote.EXPECT().Pull(gomock.Any(), "A", gomock.Any()).DoAndReturn(
		func(ctx context.Context, owner string, since *time.Time) (model.PullResult, error) {
			// пользователь сменился во время pull
			f.engine.SwitchIdentity("B")
			return model.PullResult{Programs: []model.Program{{ID: "a1"}}}, nil
		})

	require.NoError(t, f.ctl.Refresh(ctx, "A", nsA))
	require.Equal(t, model.NamespaceKey("B"), f.engine.Namespace())
	require.Empty(t, f.engine.Snapshot().Programs)

	// следующий pull A будет полным
	v, _ := f.local.GetMeta(ctx, model.LastPullKey("A"))
	require.Empty(t, v)
}

func TestRefreshAnonymous(t *testing.T) {
	f := newSyncFixture(t)
	require.ErrorIs(t, f.ctl.Refresh(context.Background(), "", model.AnonNamespace), model.ErrNotAuthenticated)
}

func TestRunFollowsIdentity(t *testing.T) {
	f := newSyncFixture(t)
	f.quietRemote("A")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.ctl.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.engine.Namespace() == model.AnonNamespace
	}, time.Second, 10*time.Millisecond)

	// ждем подписку
	require.Eventually(t, func() bool {
		f.identity.mu.Lock()
		defer f.identity.mu.Unlock()
		return len(f.identity.subs) == 1
	}, time.Second, 10*time.Millisecond)

	f.identity.set("A")
	require.Eventually(t, func() bool {
		return f.engine.Namespace() == model.NamespaceKey("A")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
