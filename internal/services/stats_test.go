package stamps

import (
	"testing"
	"time"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/stretchr/testify/require"
)

func TestComputeKPIs(t *testing.T) {
	s := DefaultSnapshot()
	s.Programs = []model.Program{{ID: "p1"}, {ID: "p2"}}
	s.Customers = []model.Customer{
		{ID: "c1", Name: "Ana", Stamps: 2, ProgramID: "p1"},
		{ID: "c2", Name: "Bia", Stamps: 7, ProgramID: "p1"},
		{ID: "c3", Name: "Caio", Stamps: 2, ProgramID: "p2"},
		{ID: "c4", Name: "Duda", Stamps: 5, ProgramID: "p2"},
	}
	s.Redemptions = []model.Redemption{{ID: "r1"}}

	k := ComputeKPIs(s)
	require.Equal(t, 2, k.TotalPrograms)
	require.Equal(t, 4, k.TotalCustomers)
	require.Equal(t, 16, k.TotalStampsGiven)
	require.Equal(t, 1, k.TotalRedemptions)

	var top []string
	for _, c := range k.TopCustomers {
		top = append(top, c.ID)
	}
	// при равенстве сохраняется исходный порядок
	require.Equal(t, []string{"c2", "c4", "c1"}, top)
}

func TestComputeKPIsEmpty(t *testing.T) {
	k := ComputeKPIs(DefaultSnapshot())
	require.Equal(t, KPI{TopCustomers: []TopCustomer{}}, k)
}

func TestRecentActivity(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	s := DefaultSnapshot()
	s.Programs = []model.Program{{ID: "p1", Name: "Café"}}
	s.Customers = []model.Customer{{ID: "c1", Name: "Ana", ProgramID: "p1"}}
	s.Redemptions = []model.Redemption{
		{ID: "old", CustomerID: "c1", ProgramID: "p1", CreatedAt: base},
		{ID: "new", CustomerID: "gone", ProgramID: "gone", CreatedAt: base.Add(time.Hour)},
	}

	items := RecentActivity(s, 0)
	require.Len(t, items, 2)
	require.Equal(t, "new", items[0].ID)
	require.Equal(t, "Cliente resgatou no cartão —", items[0].Label)
	require.Equal(t, "Ana resgatou no cartão Café", items[1].Label)

	require.Len(t, RecentActivity(s, 1), 1)
}

func TestRecentActivityDefaultLimit(t *testing.T) {
	s := DefaultSnapshot()
	for i := 0; i < 30; i++ {
		s.Redemptions = append(s.Redemptions, model.Redemption{ID: string(rune('a' + i))})
	}
	require.Len(t, RecentActivity(s, -1), 20)
}
