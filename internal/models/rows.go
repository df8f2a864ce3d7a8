package stamps

import (
	"fmt"
	"time"
)

// Строки удаленного хранилища. Формат совпадает с колонками таблиц
// и с JSON событий CDC.

type ProgramRow struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	TotalStamps int       `json:"total_stamps"`
	Reward      *string   `json:"reward"`
	Pin         *string   `json:"pin"`
	Cover       *string   `json:"cover"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CustomerRow struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProgramID string    `json:"program_id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Stamps    int       `json:"stamps"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RedemptionRow struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	ProgramID  string    `json:"program_id"`
	CustomerID string    `json:"customer_id"`
	Type       string    `json:"type"`
	Delta      *int      `json:"delta"`
	Note       *string   `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

type IdentityRow struct {
	ID                   string `json:"id"`
	Plan                 string `json:"plan"`
	MaxProgramsOverride  *int   `json:"max_programs_override"`
	MaxCustomersOverride *int   `json:"max_customers_override"`
}

func ProgramRowFrom(owner string, p Program) ProgramRow {
	row := ProgramRow{
		ID:          p.ID,
		OwnerID:     owner,
		Name:        p.Name,
		TotalStamps: p.TotalStamps,
		Reward:      optString(p.Reward),
		Pin:         optString(p.Pin),
		Cover:       optString(p.Cover),
	}
	return row
}

func (r ProgramRow) ToProgram() Program {
	return Program{
		ID:          r.ID,
		Name:        r.Name,
		TotalStamps: r.TotalStamps,
		Reward:      deref(r.Reward),
		Pin:         deref(r.Pin),
		Cover:       deref(r.Cover),
	}
}

func CustomerRowFrom(owner string, c Customer) CustomerRow {
	return CustomerRow{
		ID:        c.ID,
		OwnerID:   owner,
		ProgramID: c.ProgramID,
		Name:      c.Name,
		Phone:     optString(c.Phone),
		Stamps:    c.Stamps,
	}
}

func (r CustomerRow) ToCustomer() Customer {
	return Customer{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     deref(r.Phone),
		Stamps:    r.Stamps,
		ProgramID: r.ProgramID,
	}
}

func RedemptionRowFrom(owner string, e StampEvent) RedemptionRow {
	return RedemptionRow{
		ID:         e.ID,
		OwnerID:    owner,
		ProgramID:  e.ProgramID,
		CustomerID: e.CustomerID,
		Type:       e.Type,
		Delta:      e.Delta,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
	}
}

func (r RedemptionRow) ToEvent() StampEvent {
	return StampEvent{
		ID:         r.ID,
		ProgramID:  r.ProgramID,
		CustomerID: r.CustomerID,
		Type:       r.Type,
		Delta:      r.Delta,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
	}
}

// Только события redeem становятся локальными Redemption.
// ok=false для stamp/remove_stamp, ошибка для неизвестного формата.
func (r RedemptionRow) ToRedemption() (red Redemption, ok bool, err error) {
	if r.ID == "" || r.ProgramID == "" || r.CustomerID == "" {
		return Redemption{}, false, fmt.Errorf("redemption row %q: %w", r.ID, ErrUnknownRow)
	}
	switch r.Type {
	case EventRedeem:
		return Redemption{
			ID:         r.ID,
			CustomerID: r.CustomerID,
			ProgramID:  r.ProgramID,
			CreatedAt:  r.CreatedAt,
		}, true, nil
	case EventStamp, EventRemoveStamp:
		return Redemption{}, false, nil
	}
	return Redemption{}, false, fmt.Errorf("redemption row %q type %q: %w", r.ID, r.Type, ErrUnknownRow)
}

func (r IdentityRow) ToRecord() IdentityRecord {
	rec := IdentityRecord{ID: r.ID, Plan: PlanID(r.Plan)}
	if r.MaxProgramsOverride != nil {
		rec.Overrides.MaxPrograms = *r.MaxProgramsOverride
	}
	if r.MaxCustomersOverride != nil {
		rec.Overrides.MaxCustomersPerProgram = *r.MaxCustomersOverride
	}
	return rec
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
