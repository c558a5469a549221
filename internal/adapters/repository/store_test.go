package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/okian/custseg/internal/adapters/repository"
	"github.com/okian/custseg/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const fixture = `
CREATE TABLE "Customer" (
	id           TEXT PRIMARY KEY,
	first_name   TEXT,
	last_name    TEXT,
	total_spent  TEXT,
	orders_count INTEGER,
	created_at   TIMESTAMP,
	updated_at   TIMESTAMP,
	is_deleted   BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE "Orders" (
	id          TEXT PRIMARY KEY,
	customer_id TEXT,
	items       TEXT,
	created_at  TIMESTAMP
);`

var seedTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func openStore(ctx context.Context) *repository.SQLStore {
	store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:", time.Second)
	So(err, ShouldBeNil)

	db := store.DB()
	_, err = db.ExecContext(ctx, fixture)
	So(err, ShouldBeNil)

	customers := []struct {
		id, first, last string
		spent           any
		orders          any
		updated         any
		deleted         bool
	}{
		{"c1", "Ann", "Lee", "120.50", 3, seedTime, false},
		{"c2", "Bob", "Ray", nil, 1, nil, false},
		{"c3", "Cid", "Moe", "75", 2, seedTime, true},
	}
	for _, c := range customers {
		_, err := db.ExecContext(ctx,
			`INSERT INTO "Customer" (id, first_name, last_name, total_spent, orders_count, created_at, updated_at, is_deleted)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.id, c.first, c.last, c.spent, c.orders, seedTime, c.updated, c.deleted)
		So(err, ShouldBeNil)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO "Orders" (id, customer_id, items, created_at) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)`,
		"o2", "c1", `[{"name":"Mug"}]`, seedTime.Add(time.Hour),
		"o1", "c2", nil, seedTime)
	So(err, ShouldBeNil)
	return store
}

func TestSQLStore_Read(t *testing.T) {
	Convey("Given a store database with customers and orders", t, func() {
		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close()

		Convey("When listing active customers", func() {
			customers, err := store.ListActiveCustomers(ctx)

			Convey("Then deleted customers are excluded", func() {
				So(err, ShouldBeNil)
				So(len(customers), ShouldEqual, 2)
				So(customers[0].ID, ShouldEqual, "c1")
				So(customers[1].ID, ShouldEqual, "c2")
			})

			Convey("Then raw values are preserved and missing ones are empty", func() {
				So(customers[0].TotalSpent, ShouldEqual, "120.50")
				So(customers[0].OrdersCount, ShouldEqual, "3")
				So(customers[0].Name(), ShouldEqual, "Ann Lee")
				So(customers[0].UpdatedAt.Equal(seedTime), ShouldBeTrue)
				So(customers[1].TotalSpent, ShouldEqual, "")
				So(customers[1].UpdatedAt.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When listing orders", func() {
			orders, err := store.ListOrders(ctx)

			Convey("Then they come back in creation order", func() {
				So(err, ShouldBeNil)
				So(len(orders), ShouldEqual, 2)
				So(orders[0].ID, ShouldEqual, "o1")
				So(orders[0].Items, ShouldBeNil)
				So(string(orders[1].Items), ShouldEqual, `[{"name":"Mug"}]`)
			})
		})
	})
}

func TestSQLStore_Write(t *testing.T) {
	Convey("Given a store with the reporting schema", t, func() {
		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close()
		So(store.EnsureReportingSchema(ctx), ShouldBeNil)
		So(store.EnsureReportingSchema(ctx), ShouldBeNil)

		res := &model.Result{
			RunID: "run-1",
			Assignments: []model.Assignment{
				{CustomerID: "c1", Label: 0},
				{CustomerID: "c2", Label: 1},
			},
			Profiles: []model.ClusterProfile{
				{Label: 0, Count: 1, Means: model.FeatureVector{OrdersCount: 3, TotalSpent: 120.5}},
				{Label: 1, Count: 1, Means: model.FeatureVector{OrdersCount: 1}},
			},
		}

		Convey("When saving a segmentation twice with different labels", func() {
			So(store.SaveSegmentation(ctx, res), ShouldBeNil)
			res.RunID = "run-2"
			res.Assignments[0].Label = 1
			So(store.SaveSegmentation(ctx, res), ShouldBeNil)

			Convey("Then each customer keeps its latest assignment", func() {
				var (
					run     string
					cluster int
				)
				err := store.DB().QueryRowContext(ctx,
					`SELECT run_id, cluster FROM "CustomerSegments" WHERE customer_id = $1`, "c1").Scan(&run, &cluster)
				So(err, ShouldBeNil)
				So(run, ShouldEqual, "run-2")
				So(cluster, ShouldEqual, 1)
			})

			Convey("Then profiles of both runs are kept", func() {
				var n int
				So(store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "SegmentProfiles"`).Scan(&n), ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When saving a report over an existing one", func() {
			rep := &model.Report{
				HighSpenders:     []model.CustomerRank{{CustomerID: "c1", Name: "Ann Lee", TotalSpent: 100}},
				FrequentShoppers: []model.CustomerRank{{CustomerID: "c1", Name: "Ann Lee", OrdersCount: 3}},
				BestSellers:      []model.ProductCount{{Name: "Mug", QuantitySold: 1}},
			}
			So(store.SaveReport(ctx, rep), ShouldBeNil)
			rep.HighSpenders[0].TotalSpent = 120.5
			rep.BestSellers[0].QuantitySold = 4
			So(store.SaveReport(ctx, rep), ShouldBeNil)

			Convey("Then rows are updated in place", func() {
				var spent float64
				So(store.DB().QueryRowContext(ctx, `SELECT total_spent FROM "HighSpenders" WHERE customer_id = 'c1'`).Scan(&spent), ShouldBeNil)
				So(spent, ShouldEqual, 120.5)

				var qty, n int
				So(store.DB().QueryRowContext(ctx, `SELECT quantity_sold FROM "BestSellingProducts" WHERE name = 'Mug'`).Scan(&qty), ShouldBeNil)
				So(qty, ShouldEqual, 4)
				So(store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "BestSellingProducts"`).Scan(&n), ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a write fails midway", func() {
			_, err := store.DB().ExecContext(ctx, `DROP TABLE "SegmentProfiles"`)
			So(err, ShouldBeNil)
			err = store.SaveSegmentation(ctx, res)

			Convey("Then nothing of the run is stored", func() {
				So(err, ShouldNotBeNil)
				var n int
				So(store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "CustomerSegments"`).Scan(&n), ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given an unknown driver", t, func() {
		_, err := repository.Open(context.Background(), "mysql", "dsn", time.Second)
		So(errors.Is(err, repository.ErrUnsupportedDriver), ShouldBeTrue)
	})

	Convey("Given a postgres handle without an explicit schema", t, func() {
		db, err := sql.Open(repository.DriverPostgres, "postgres://localhost/none?sslmode=disable")
		So(err, ShouldBeNil)
		defer db.Close()
		store := repository.New(db, repository.DriverPostgres)
		So(store.Driver(), ShouldEqual, repository.DriverPostgres)
	})
}
