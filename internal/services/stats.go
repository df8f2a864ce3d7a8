package stamps

import (
	"fmt"
	"sort"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
)

const (
	topCustomers  = 3
	activityLimit = 20
)

type TopCustomer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Stamps    int    `json:"stamps"`
	ProgramID string `json:"programId"`
}

type KPI struct {
	TotalPrograms    int           `json:"totalPrograms"`
	TotalCustomers   int           `json:"totalCustomers"`
	TotalStampsGiven int           `json:"totalStampsGiven"` // сумма текущих штампов
	TotalRedemptions int           `json:"totalRedemptions"`
	TopCustomers     []TopCustomer `json:"topCustomers"`
}

type ActivityItem struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	When  time.Time `json:"when"`
}

// KPI по локальному состоянию, без обращений к удаленному хранилищу
func ComputeKPIs(s model.Snapshot) KPI {
	k := KPI{
		TotalPrograms:    len(s.Programs),
		TotalCustomers:   len(s.Customers),
		TotalRedemptions: len(s.Redemptions),
		TopCustomers:     []TopCustomer{},
	}
	for _, c := range s.Customers {
		k.TotalStampsGiven += c.Stamps
	}

	sorted := append([]model.Customer{}, s.Customers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stamps > sorted[j].Stamps
	})
	if len(sorted) > topCustomers {
		sorted = sorted[:topCustomers]
	}
	for _, c := range sorted {
		k.TopCustomers = append(k.TopCustomers, TopCustomer{c.ID, c.Name, c.Stamps, c.ProgramID})
	}
	return k
}

// RecentActivity lists the newest redemptions with customer and program names.
// limit <= 0 uses the default of 20.
func RecentActivity(s model.Snapshot, limit int) []ActivityItem {
	if limit <= 0 {
		limit = activityLimit
	}
	customers := make(map[string]string, len(s.Customers))
	for _, c := range s.Customers {
		customers[c.ID] = c.Name
	}
	programs := make(map[string]string, len(s.Programs))
	for _, p := range s.Programs {
		programs[p.ID] = p.Name
	}

	list := append([]model.Redemption{}, s.Redemptions...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}

	items := make([]ActivityItem, 0, len(list))
	for _, r := range list {
		name, ok := customers[r.CustomerID]
		if !ok {
			name = "Cliente"
		}
		program, ok := programs[r.ProgramID]
		if !ok {
			program = "—"
		}
		items = append(items, ActivityItem{
			ID:    r.ID,
			Label: fmt.Sprintf("%s resgatou no cartão %s", name, program),
			When:  r.CreatedAt,
		})
	}
	return items
}
