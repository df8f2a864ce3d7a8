package stamps

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	model "github.com/glkeru/loyalty/stamps/internal/models"
)

var (
	programColumns    = []string{"id", "owner_id", "name", "total_stamps", "reward", "pin", "cover", "updated_at"}
	customerColumns   = []string{"id", "owner_id", "program_id", "name", "phone", "stamps", "updated_at"}
	redemptionColumns = []string{"id", "owner_id", "program_id", "customer_id", "type", "delta", "note", "created_at"}
	identityColumns   = []string{"id", "plan", "max_programs_override", "max_customers_override"}
)

// Выборка изменений после since. Фильтр по владельцу не нужен - его делает RLS.
func pullQuery(table string, columns []string, tsColumn string, since *time.Time) (string, []any, error) {
	q := sq.Select(columns...).
		From(table).
		OrderBy(tsColumn + " ASC").
		PlaceholderFormat(sq.Dollar)
	if since != nil {
		q = q.Where(sq.Gt{tsColumn: *since})
	}
	return q.ToSql()
}

func upsertProgramsQuery(owner string, programs []model.Program) (string, []any, error) {
	q := sq.Insert("programs").Columns(programColumns...)
	for _, p := range programs {
		r := model.ProgramRowFrom(owner, p)
		q = q.Values(r.ID, r.OwnerID, r.Name, r.TotalStamps, r.Reward, r.Pin, r.Cover, sq.Expr("now()"))
	}
	return q.Suffix("ON CONFLICT (id) DO UPDATE SET " +
		"name = EXCLUDED.name, total_stamps = EXCLUDED.total_stamps, reward = EXCLUDED.reward, " +
		"pin = EXCLUDED.pin, cover = EXCLUDED.cover, updated_at = EXCLUDED.updated_at " +
		"RETURNING " + strings.Join(programColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func upsertCustomersQuery(owner string, customers []model.Customer) (string, []any, error) {
	q := sq.Insert("customers").Columns(customerColumns...)
	for _, c := range customers {
		r := model.CustomerRowFrom(owner, c)
		q = q.Values(r.ID, r.OwnerID, r.ProgramID, r.Name, r.Phone, r.Stamps, sq.Expr("now()"))
	}
	return q.Suffix("ON CONFLICT (id) DO UPDATE SET " +
		"program_id = EXCLUDED.program_id, name = EXCLUDED.name, phone = EXCLUDED.phone, " +
		"stamps = EXCLUDED.stamps, updated_at = EXCLUDED.updated_at " +
		"RETURNING " + strings.Join(customerColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// События только добавляются. Повторная доставка того же id ничего не меняет.
func insertEventsQuery(owner string, events []model.StampEvent) (string, []any, error) {
	q := sq.Insert("redemptions").Columns(redemptionColumns...)
	for _, e := range events {
		r := model.RedemptionRowFrom(owner, e)
		var created any = sq.Expr("now()")
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt
		}
		q = q.Values(r.ID, r.OwnerID, r.ProgramID, r.CustomerID, r.Type, r.Delta, r.Note, created)
	}
	return q.Suffix("ON CONFLICT (id) DO NOTHING RETURNING " + strings.Join(redemptionColumns, ", ")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func deleteQuery(table string, id string) (string, []any, error) {
	return sq.Delete(table).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func identityQuery(owner string) (string, []any, error) {
	return sq.Select(identityColumns...).
		From("identity_record").
		Where(sq.Eq{"id": owner}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func createIdentityQuery(owner string, plan model.PlanID) (string, []any, error) {
	return sq.Insert("identity_record").
		Columns("id", "plan").
		Values(owner, string(plan)).
		Suffix("ON CONFLICT (id) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func upsertProfileQuery(owner string, p model.Profile) (string, []any, error) {
	return sq.Insert("profiles").
		Columns("owner_id", "owner_name", "store_name", "phone", "email", "business_type", "updated_at").
		Values(owner, p.OwnerName, p.StoreName, p.Phone, p.Email, p.BusinessType, sq.Expr("now()")).
		Suffix("ON CONFLICT (owner_id) DO UPDATE SET " +
			"owner_name = EXCLUDED.owner_name, store_name = EXCLUDED.store_name, phone = EXCLUDED.phone, " +
			"email = EXCLUDED.email, business_type = EXCLUDED.business_type, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}
