package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
)

// EnsureSourceSchema creates the Customer and Orders tables when they are missing.
// Production stores own these tables; this serves local databases and seeding.
func (s *SQLStore) EnsureSourceSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           TEXT PRIMARY KEY,
			first_name   TEXT,
			last_name    TEXT,
			total_spent  TEXT,
			orders_count INTEGER,
			created_at   TIMESTAMP,
			updated_at   TIMESTAMP,
			is_deleted   BOOLEAN NOT NULL DEFAULT FALSE
		)`, s.table(TableCustomer)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			customer_id TEXT,
			items       TEXT,
			created_at  TIMESTAMP
		)`, s.table(TableOrders)),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure source schema: %w", err)
		}
	}
	return nil
}

// SaveCustomers upserts customers and their orders in one transaction.
func (s *SQLStore) SaveCustomers(ctx context.Context, customers []model.CustomerRecord, orders []model.Order) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		upsert := fmt.Sprintf(`
			INSERT INTO %s (id, first_name, last_name, total_spent, orders_count, created_at, updated_at, is_deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id)
			DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
				total_spent = EXCLUDED.total_spent, orders_count = EXCLUDED.orders_count,
				updated_at = EXCLUDED.updated_at, is_deleted = EXCLUDED.is_deleted`,
			s.table(TableCustomer))
		for _, c := range customers {
			if _, err := tx.ExecContext(ctx, upsert, c.ID, c.FirstName, c.LastName,
				nullString(c.TotalSpent), nullString(c.OrdersCount),
				nullTime(c.CreatedAt), nullTime(c.UpdatedAt), c.IsDeleted); err != nil {
				return fmt.Errorf("save customer %s: %w", c.ID, err)
			}
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s (id, customer_id, items, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id)
			DO UPDATE SET customer_id = EXCLUDED.customer_id, items = EXCLUDED.items, created_at = EXCLUDED.created_at`,
			s.table(TableOrders))
		for _, o := range orders {
			if _, err := tx.ExecContext(ctx, insert, o.ID, nullString(o.CustomerID),
				nullString(string(o.Items)), nullTime(o.CreatedAt)); err != nil {
				return fmt.Errorf("save order %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "customers saved",
		logger.Int("customers", len(customers)),
		logger.Int("orders", len(orders)),
	)
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
