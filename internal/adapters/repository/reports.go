package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
	"github.com/okian/custseg/pkg/metrics"
)

// EnsureReportingSchema creates the result tables when they are missing.
func (s *SQLStore) EnsureReportingSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			customer_id TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL,
			cluster     INTEGER NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`, s.table(TableCustomerSegments)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id              TEXT NOT NULL,
			cluster             INTEGER NOT NULL,
			customer_count      INTEGER NOT NULL,
			orders_count        DOUBLE PRECISION NOT NULL,
			total_spent         DOUBLE PRECISION NOT NULL,
			average_order_value DOUBLE PRECISION NOT NULL,
			recency_days        DOUBLE PRECISION NOT NULL,
			created_at          TIMESTAMP NOT NULL,
			PRIMARY KEY (run_id, cluster)
		)`, s.table(TableSegmentProfiles)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			customer_id   TEXT PRIMARY KEY,
			customer_name TEXT,
			total_spent   DOUBLE PRECISION
		)`, s.table(TableHighSpenders)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			customer_id   TEXT PRIMARY KEY,
			customer_name TEXT,
			orders_count  INTEGER
		)`, s.table(TableFrequentShoppers)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			name          TEXT PRIMARY KEY,
			quantity_sold INTEGER
		)`, s.table(TableBestSellingProducts)),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure reporting schema: %w", err)
		}
	}
	return nil
}

// SaveSegmentation stores the customer assignments and cluster profiles of res in one
// transaction. A customer keeps only its latest assignment.
func (s *SQLStore) SaveSegmentation(ctx context.Context, res *model.Result) error {
	now := time.Now().UTC()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		upsert := fmt.Sprintf(`
			INSERT INTO %s (customer_id, run_id, cluster, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (customer_id)
			DO UPDATE SET run_id = EXCLUDED.run_id, cluster = EXCLUDED.cluster, updated_at = EXCLUDED.updated_at`,
			s.table(TableCustomerSegments))
		for _, a := range res.Assignments {
			if _, err := tx.ExecContext(ctx, upsert, a.CustomerID, res.RunID, a.Label, now); err != nil {
				return fmt.Errorf("save assignment %s: %w", a.CustomerID, err)
			}
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s (run_id, cluster, customer_count, orders_count, total_spent, average_order_value, recency_days, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.table(TableSegmentProfiles))
		for _, p := range res.Profiles {
			m := p.Means
			if _, err := tx.ExecContext(ctx, insert, res.RunID, p.Label, p.Count,
				m.OrdersCount, m.TotalSpent, m.AverageOrderValue, m.RecencyDays, now); err != nil {
				return fmt.Errorf("save profile %d: %w", p.Label, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordReportRows(TableCustomerSegments, len(res.Assignments))
	metrics.RecordReportRows(TableSegmentProfiles, len(res.Profiles))
	s.logger.Info(ctx, "segmentation saved",
		logger.String("run_id", res.RunID),
		logger.Int("assignments", len(res.Assignments)),
		logger.Int("profiles", len(res.Profiles)),
	)
	return nil
}

// SaveReport upserts the three store reports in one transaction.
func (s *SQLStore) SaveReport(ctx context.Context, rep *model.Report) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		spenders := fmt.Sprintf(`
			INSERT INTO %s (customer_id, customer_name, total_spent)
			VALUES ($1, $2, $3)
			ON CONFLICT (customer_id)
			DO UPDATE SET customer_name = EXCLUDED.customer_name, total_spent = EXCLUDED.total_spent`,
			s.table(TableHighSpenders))
		for _, r := range rep.HighSpenders {
			if _, err := tx.ExecContext(ctx, spenders, r.CustomerID, r.Name, r.TotalSpent); err != nil {
				return fmt.Errorf("save high spender %s: %w", r.CustomerID, err)
			}
		}

		shoppers := fmt.Sprintf(`
			INSERT INTO %s (customer_id, customer_name, orders_count)
			VALUES ($1, $2, $3)
			ON CONFLICT (customer_id)
			DO UPDATE SET customer_name = EXCLUDED.customer_name, orders_count = EXCLUDED.orders_count`,
			s.table(TableFrequentShoppers))
		for _, r := range rep.FrequentShoppers {
			if _, err := tx.ExecContext(ctx, shoppers, r.CustomerID, r.Name, r.OrdersCount); err != nil {
				return fmt.Errorf("save frequent shopper %s: %w", r.CustomerID, err)
			}
		}

		products := fmt.Sprintf(`
			INSERT INTO %s (name, quantity_sold)
			VALUES ($1, $2)
			ON CONFLICT (name)
			DO UPDATE SET quantity_sold = EXCLUDED.quantity_sold`,
			s.table(TableBestSellingProducts))
		for _, p := range rep.BestSellers {
			if _, err := tx.ExecContext(ctx, products, p.Name, p.QuantitySold); err != nil {
				return fmt.Errorf("save best seller %q: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordReportRows(TableHighSpenders, len(rep.HighSpenders))
	metrics.RecordReportRows(TableFrequentShoppers, len(rep.FrequentShoppers))
	metrics.RecordReportRows(TableBestSellingProducts, len(rep.BestSellers))
	s.logger.Info(ctx, "report saved",
		logger.Int("high_spenders", len(rep.HighSpenders)),
		logger.Int("frequent_shoppers", len(rep.FrequentShoppers)),
		logger.Int("best_sellers", len(rep.BestSellers)),
	)
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn(ctx, "rollback failed", logger.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
