package stamps

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	conf "github.com/glkeru/loyalty/stamps/internal/config"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed schema.sql
var schemaSQL string

// Удаленное хранилище (Postgres с RLS)
type RemoteDB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewRemoteDB(ctx context.Context, cfg conf.RemoteConfig, logger *zap.Logger) (*RemoteDB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &RemoteDB{pool, logger}, nil
}

func (p *RemoteDB) Close() {
	p.pool.Close()
}

// Создание таблиц и политик RLS
func (p *RemoteDB) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	if err != nil {
		p.logger.Error("migrate error", zap.Error(err))
		return err
	}
	return nil
}

// Транзакция от имени владельца: политики RLS видят owner через request.jwt.claim.sub
func (p *RemoteDB) withOwner(ctx context.Context, owner string, fn func(tx pgx.Tx) error) (err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		p.logger.Error("Get connection error", zap.Error(err))
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, "SELECT set_config('request.jwt.claim.sub', $1, true)", owner)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *RemoteDB) sqlError(err error, query string, args []any) error {
	p.logger.Error("SQL error",
		zap.Error(err),
		zap.String("query", query),
		zap.Any("args", args),
	)
	return err
}

// Pull: три таблицы параллельно, каждая в своей транзакции
func (p *RemoteDB) Pull(ctx context.Context, owner string, since *time.Time) (model.PullResult, error) {
	var (
		programs    []model.ProgramRow
		customers   []model.CustomerRow
		redemptions []model.RedemptionRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		programs, err = p.pullPrograms(gctx, owner, since)
		return err
	})
	g.Go(func() (err error) {
		customers, err = p.pullCustomers(gctx, owner, since)
		return err
	})
	g.Go(func() (err error) {
		redemptions, err = p.pullRedemptions(gctx, owner, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PullResult{}, err
	}

	res := model.PullResult{
		Programs:    make([]model.Program, 0, len(programs)),
		Customers:   make([]model.Customer, 0, len(customers)),
		Redemptions: make([]model.Redemption, 0, len(redemptions)),
	}
	for _, r := range programs {
		res.Programs = append(res.Programs, r.ToProgram())
	}
	for _, r := range customers {
		res.Customers = append(res.Customers, r.ToCustomer())
	}
	for _, r := range redemptions {
		red, ok, err := r.ToRedemption()
		if err != nil {
			p.logger.Warn("redemption row skipped", zap.Error(err))
			continue
		}
		if ok {
			res.Redemptions = append(res.Redemptions, red)
		}
	}
	return res, nil
}

func (p *RemoteDB) pullPrograms(ctx context.Context, owner string, since *time.Time) (out []model.ProgramRow, err error) {
	query, args, err := pullQuery("programs", programColumns, "updated_at", since)
	if err != nil {
		return nil, p.sqlError(err, query, args)
	}
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanProgram(rows)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

func (p *RemoteDB) pullCustomers(ctx context.Context, owner string, since *time.Time) (out []model.CustomerRow, err error) {
	query, args, err := pullQuery("customers", customerColumns, "updated_at", since)
	if err != nil {
		return nil, p.sqlError(err, query, args)
	}
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanCustomer(rows)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

func (p *RemoteDB) pullRedemptions(ctx context.Context, owner string, since *time.Time) (out []model.RedemptionRow, err error) {
	query, args, err := pullQuery("redemptions", redemptionColumns, "created_at", since)
	if err != nil {
		return nil, p.sqlError(err, query, args)
	}
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanRedemption(rows)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

func (p *RemoteDB) PushPrograms(ctx context.Context, owner string, programs []model.Program) (acked []model.Program, err error) {
	if len(programs) == 0 {
		return nil, nil
	}
	query, args, err := upsertProgramsQuery(owner, programs)
	if err != nil {
		return nil, p.sqlError(err, query, args)
	}
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanProgram(rows)
			if err != nil {
				return err
			}
			acked = append(acked, row.ToProgram())
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return acked, nil
}

func (p *RemoteDB) PushCustomers(ctx context.Context, owner string, customers []model.Customer) (acked []model.Customer, err error) {
	if len(customers) == 0 {
		return nil, nil
	}
	query, args, err := upsertCustomersQuery(owner, customers)
	if err != nil {
		return nil, p.sqlError(err, query, args)
	}
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanCustomer(rows)
			if err != nil {
				return err
			}
			acked = append(acked, row.ToCustomer())
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return acked, nil
}

// Уже существующие события не возвращаются RETURNING, поэтому
// подтвержденными считаются все переданные при успешной вставке.
func (p *RemoteDB) PushEvents(ctx context.Context, owner string, events []model.StampEvent) ([]model.StampEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	query, args, err := insertEventsQuery(owner, events)
	if err != nil {
		return nil, p.sqlError(err, query, args)
	}
	inserted := 0
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		defer rows.Close()
		for rows.Next() {
			inserted++
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if inserted < len(events) {
		p.logger.Debug("duplicate events ignored", zap.Int("sent", len(events)), zap.Int("inserted", inserted))
	}
	return events, nil
}

func (p *RemoteDB) DeleteProgram(ctx context.Context, owner string, id string) error {
	return p.delete(ctx, owner, "programs", id)
}

func (p *RemoteDB) DeleteCustomer(ctx context.Context, owner string, id string) error {
	return p.delete(ctx, owner, "customers", id)
}

func (p *RemoteDB) delete(ctx context.Context, owner string, table string, id string) error {
	query, args, err := deleteQuery(table, id)
	if err != nil {
		return p.sqlError(err, query, args)
	}
	return p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		return nil
	})
}

func (p *RemoteDB) GetIdentityRecord(ctx context.Context, owner string) (rec model.IdentityRecord, err error) {
	query, args, err := identityQuery(owner)
	if err != nil {
		return rec, p.sqlError(err, query, args)
	}
	err = p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		var (
			row       model.IdentityRow
			programs  pgtype.Int4
			customers pgtype.Int4
		)
		err := tx.QueryRow(ctx, query, args...).Scan(&row.ID, &row.Plan, &programs, &customers)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("identity record %s: %w", owner, model.ErrNotFound)
			}
			return p.sqlError(err, query, args)
		}
		row.MaxProgramsOverride = intPtr(programs)
		row.MaxCustomersOverride = intPtr(customers)
		rec = row.ToRecord()
		return nil
	})
	return rec, err
}

func (p *RemoteDB) CreateIdentityRecord(ctx context.Context, owner string, plan model.PlanID) error {
	query, args, err := createIdentityQuery(owner, plan)
	if err != nil {
		return p.sqlError(err, query, args)
	}
	return p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		return nil
	})
}

func (p *RemoteDB) UpsertProfile(ctx context.Context, owner string, profile model.Profile) error {
	query, args, err := upsertProfileQuery(owner, profile)
	if err != nil {
		return p.sqlError(err, query, args)
	}
	return p.withOwner(ctx, owner, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return p.sqlError(err, query, args)
		}
		return nil
	})
}

func scanProgram(rows pgx.Rows) (model.ProgramRow, error) {
	var (
		row    model.ProgramRow
		reward pgtype.Text
		pin    pgtype.Text
		cover  pgtype.Text
	)
	err := rows.Scan(&row.ID, &row.OwnerID, &row.Name, &row.TotalStamps, &reward, &pin, &cover, &row.UpdatedAt)
	if err != nil {
		return row, err
	}
	row.Reward = textPtr(reward)
	row.Pin = textPtr(pin)
	row.Cover = textPtr(cover)
	return row, nil
}

func scanCustomer(rows pgx.Rows) (model.CustomerRow, error) {
	var (
		row   model.CustomerRow
		phone pgtype.Text
	)
	err := rows.Scan(&row.ID, &row.OwnerID, &row.ProgramID, &row.Name, &phone, &row.Stamps, &row.UpdatedAt)
	if err != nil {
		return row, err
	}
	row.Phone = textPtr(phone)
	return row, nil
}

func scanRedemption(rows pgx.Rows) (model.RedemptionRow, error) {
	var (
		row   model.RedemptionRow
		delta pgtype.Int4
		note  pgtype.Text
	)
	err := rows.Scan(&row.ID, &row.OwnerID, &row.ProgramID, &row.CustomerID, &row.Type, &delta, &note, &row.CreatedAt)
	if err != nil {
		return row, err
	}
	row.Delta = intPtr(delta)
	row.Note = textPtr(note)
	return row, nil
}

func textPtr(t pgtype.Text) *string {
	if t.Status != pgtype.Present {
		return nil
	}
	s := t.String
	return &s
}

func intPtr(i pgtype.Int4) *int {
	if i.Status != pgtype.Present {
		return nil
	}
	v := int(i.Int)
	return &v
}
