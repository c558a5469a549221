// Package repository reads customers and orders from the store database and writes
// segmentation results and reports back to it.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	defaultPostgresSchema = "public"
)

// Table names of the store database.
const (
	TableCustomer            = "Customer"
	TableOrders              = "Orders"
	TableCustomerSegments    = "CustomerSegments"
	TableSegmentProfiles     = "SegmentProfiles"
	TableHighSpenders        = "HighSpenders"
	TableFrequentShoppers    = "FrequentShoppers"
	TableBestSellingProducts = "BestSellingProducts"
)

// SQLStore is the data-access collaborator of the pipeline. Connection details are passed in
// explicitly; the store holds no process-wide state.
type SQLStore struct {
	db        *sql.DB
	driver    string
	schema    string
	schemaSet bool
	logger    logger.Logger
}

// Open connects to dsn with driver and verifies the connection within timeout.
func Open(ctx context.Context, driver, dsn string, timeout time.Duration, opts ...Option) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return New(db, driver, opts...), nil
}

// New wraps an open database handle.
func New(db *sql.DB, driver string, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.schemaSet && driver == DriverPostgres {
		s.schema = defaultPostgresSchema
	}
	if driver == DriverSQLite {
		// every connection to an in-memory database is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return s
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// table returns the quoted, optionally schema-qualified table name.
func (s *SQLStore) table(name string) string {
	if s.schema == "" {
		return pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(name)
}

// ListActiveCustomers returns every customer that is not soft-deleted, ordered by id.
func (s *SQLStore) ListActiveCustomers(ctx context.Context) ([]model.CustomerRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, total_spent, orders_count, created_at, updated_at, is_deleted
		FROM %s
		WHERE is_deleted = FALSE
		ORDER BY id`, s.table(TableCustomer))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.CustomerRecord
	for rows.Next() {
		var (
			c                model.CustomerRecord
			first, last      sql.NullString
			spent, orders    sql.NullString
			created, updated sql.NullTime
		)
		if err := rows.Scan(&c.ID, &first, &last, &spent, &orders, &created, &updated, &c.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.FirstName = first.String
		c.LastName = last.String
		c.TotalSpent = spent.String
		c.OrdersCount = orders.String
		if created.Valid {
			c.CreatedAt = created.Time
		}
		if updated.Valid {
			c.UpdatedAt = updated.Time
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	s.logger.Debug(ctx, "customers loaded", logger.Int("count", len(customers)))
	return customers, nil
}

// ListOrders returns every order, ordered by creation time.
func (s *SQLStore) ListOrders(ctx context.Context) ([]model.Order, error) {
	query := fmt.Sprintf(`
		SELECT id, customer_id, items, created_at
		FROM %s
		ORDER BY created_at, id`, s.table(TableOrders))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o        model.Order
			customer sql.NullString
			items    sql.NullString
			created  sql.NullTime
		)
		if err := rows.Scan(&o.ID, &customer, &items, &created); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.CustomerID = customer.String
		if items.Valid {
			o.Items = []byte(items.String)
		}
		if created.Valid {
			o.CreatedAt = created.Time
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	s.logger.Debug(ctx, "orders loaded", logger.Int("count", len(orders)))
	return orders, nil
}
