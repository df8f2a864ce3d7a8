package stamps

import (
	"context"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
)

//go:generate mockgen -destination=./../services/mock_stamps_test.go -package=stamps . RemoteStore,PurchaseValidator

// Локальный кэш состояния, ключ - namespace пользователя
type LocalStore interface {
	Load(ctx context.Context, key string) (snap model.PartialSnapshot, ok bool)
	Save(ctx context.Context, key string, snap model.Snapshot) error
	GetMeta(ctx context.Context, key string) (value string, ok bool)
	SetMeta(ctx context.Context, key string, value string) error
}

// Удаленное хранилище. Доступ к строкам ограничивает сервер (RLS по owner).
type RemoteStore interface {
	Pull(ctx context.Context, owner string, since *time.Time) (model.PullResult, error)
	PushPrograms(ctx context.Context, owner string, programs []model.Program) ([]model.Program, error)
	PushCustomers(ctx context.Context, owner string, customers []model.Customer) ([]model.Customer, error)
	PushEvents(ctx context.Context, owner string, events []model.StampEvent) ([]model.StampEvent, error)
	DeleteProgram(ctx context.Context, owner string, id string) error
	DeleteCustomer(ctx context.Context, owner string, id string) error
	GetIdentityRecord(ctx context.Context, owner string) (model.IdentityRecord, error)
	CreateIdentityRecord(ctx context.Context, owner string, plan model.PlanID) error
	UpsertProfile(ctx context.Context, owner string, profile model.Profile) error
}

// Текущий пользователь, "" - анонимный режим
type IdentityProvider interface {
	Current() string
	Subscribe() (changes <-chan string, cancel func())
}

// Источник вставок в таблицу redemptions (другие устройства)
type RedemptionSource interface {
	Next(ctx context.Context) (model.RedemptionRow, error)
	Close() error
}

// Проверка покупки на доверенном backend
type PurchaseValidator interface {
	Validate(ctx context.Context, purchase model.PurchaseConfirmation) (productID string, err error)
}
