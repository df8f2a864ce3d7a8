package stamps

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAuthenticated = errors.New("user is not authenticated")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrInvalidPhone     = errors.New("invalid phone")
	ErrDuplicatePhone   = errors.New("duplicate phone")
	ErrInvalidProgram   = errors.New("invalid program")
	ErrWrongPin         = errors.New("wrong pin")
	ErrUnknownRow       = errors.New("unknown row shape")
	ErrInvalidPurchase  = errors.New("invalid purchase")
	ErrUnknownProduct   = errors.New("unknown product")
)

// Тарифы
type PlanID string

const (
	PlanFreemium PlanID = "freemium"
	PlanStart    PlanID = "start"
	PlanPro      PlanID = "pro"
)

// Действующие лимиты тарифа
type Limits struct {
	MaxPrograms            int `json:"maxPrograms"`
	MaxCustomersPerProgram int `json:"maxCustomersPerProgram"`
}

// Переопределения лимитов из записи пользователя, 0 - не задано
type LimitOverrides struct {
	MaxPrograms            int `json:"maxPrograms,omitempty"`
	MaxCustomersPerProgram int `json:"maxCustomersPerProgram,omitempty"`
}

// Карта лояльности (программа штампов)
type Program struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=60"`
	TotalStamps int    `json:"totalStamps" validate:"min=1,max=30"`
	Reward      string `json:"reward" validate:"max=120"`
	Pin         string `json:"pin" validate:"required,number,min=4,max=6"`
	Cover       string `json:"cover,omitempty"`
}

type ProgramInput struct {
	Name        string `json:"name"`
	TotalStamps int    `json:"totalStamps"`
	Reward      string `json:"reward"`
	Pin         string `json:"pin"`
	Cover       string `json:"cover,omitempty"`
}

// Частичное обновление программы, nil - поле не меняется
type ProgramPatch struct {
	Name        *string `json:"name,omitempty"`
	TotalStamps *int    `json:"totalStamps,omitempty"`
	Reward      *string `json:"reward,omitempty"`
	Pin         *string `json:"pin,omitempty"`
	Cover       *string `json:"cover,omitempty"`
}

// Клиент программы
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"` // только цифры, после Normalize
	Stamps    int    `json:"stamps"`
	ProgramID string `json:"programId"`
}

type CustomerInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	ProgramID string `json:"programId"`
}

// Получение награды, не изменяется после создания
type Redemption struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	ProgramID  string    `json:"programId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Profile struct {
	OwnerName    string `json:"ownerName"`
	StoreName    string `json:"storeName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	BusinessType string `json:"businessType"`
}

type ProfilePatch struct {
	OwnerName    *string `json:"ownerName,omitempty"`
	StoreName    *string `json:"storeName,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	BusinessType *string `json:"businessType,omitempty"`
}

// Полное состояние - единица локального хранения
type Snapshot struct {
	Programs    []Program    `json:"programs"`
	Customers   []Customer   `json:"customers"`
	Redemptions []Redemption `json:"redemptions"`
	Plan        PlanID       `json:"plan"`
	Limits      Limits       `json:"limits"`
	Profile     Profile      `json:"profile"`
}

// Состояние для HYDRATE: nil - поле отсутствует
type PartialSnapshot struct {
	Programs    []Program    `json:"programs,omitempty"`
	Customers   []Customer   `json:"customers,omitempty"`
	Redemptions []Redemption `json:"redemptions,omitempty"`
	Plan        *PlanID      `json:"plan,omitempty"`
	Limits      *Limits      `json:"limits,omitempty"`
	Profile     *Profile     `json:"profile,omitempty"`
}

// Копия без общих слайсов
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Programs = append(make([]Program, 0, len(s.Programs)), s.Programs...)
	out.Customers = append(make([]Customer, 0, len(s.Customers)), s.Customers...)
	out.Redemptions = append(make([]Redemption, 0, len(s.Redemptions)), s.Redemptions...)
	return out
}

// Типы событий в удаленной таблице redemptions
const (
	EventStamp       = "stamp"
	EventRedeem      = "redeem"
	EventRemoveStamp = "remove_stamp"
)

// Событие аудита: штамп или получение награды
type StampEvent struct {
	ID         string    `json:"id"`
	ProgramID  string    `json:"programId"`
	CustomerID string    `json:"customerId"`
	Type       string    `json:"type"`
	Delta      *int      `json:"delta,omitempty"`
	Note       *string   `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Запись пользователя в удаленном хранилище
type IdentityRecord struct {
	ID        string
	Plan      PlanID
	Overrides LimitOverrides
}

// Результат pull
type PullResult struct {
	Programs    []Program
	Customers   []Customer
	Redemptions []Redemption
	PulledAt    time.Time
}

// Данные для push, пустые коллекции пропускаются
type PushBatch struct {
	Programs  []Program
	Customers []Customer
	Events    []StampEvent
}

// Подтвержденные хранилищем строки
type PushResult struct {
	Programs  []Program
	Customers []Customer
	Events    []StampEvent
	PushedAt  time.Time
}

// Продукт из каталога магазина приложений
type Product struct {
	ProductID  string `json:"productId"`
	Price      string `json:"price"`
	OfferToken string `json:"offerToken"`
}

// Событие подтверждения покупки
type PurchaseConfirmation struct {
	ProductID     string `json:"productId"`
	PurchaseToken string `json:"purchaseToken"`
}
