package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	service "github.com/okian/custseg/internal/app"
	"github.com/okian/custseg/internal/adapters/repository"
	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/internal/domain/segmentation"
	. "github.com/smartystreets/goconvey/convey"
)

func seedStore(ctx context.Context, store *repository.SQLStore) {
	_, err := store.DB().ExecContext(ctx, `
		CREATE TABLE "Customer" (
			id TEXT PRIMARY KEY, first_name TEXT, last_name TEXT, total_spent TEXT,
			orders_count INTEGER, created_at TIMESTAMP, updated_at TIMESTAMP, is_deleted BOOLEAN NOT NULL
		);
		CREATE TABLE "Orders" (id TEXT PRIMARY KEY, customer_id TEXT, items TEXT, created_at TIMESTAMP);`)
	So(err, ShouldBeNil)

	for i := 0; i < 12; i++ {
		spent := fmt.Sprintf("%d.50", 20*(i%4)+i)
		_, err := store.DB().ExecContext(ctx,
			`INSERT INTO "Customer" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			fmt.Sprintf("cust-%02d", i), "First", fmt.Sprintf("Last%d", i), spent, i%5,
			ref.AddDate(-1, 0, 0), ref.AddDate(0, 0, -i*7), i == 11)
		So(err, ShouldBeNil)
	}
	_, err = store.DB().ExecContext(ctx,
		`INSERT INTO "Orders" VALUES ('o1', 'cust-01', '[{"name":"Mug"},{"name":"COD-Fees"}]', $1)`, ref)
	So(err, ShouldBeNil)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by a SQL store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:", time.Second)
		So(err, ShouldBeNil)
		defer store.Close()
		seedStore(ctx, store)
		So(store.EnsureReportingSchema(ctx), ShouldBeNil)

		svc := service.New(
			service.WithSource(store),
			service.WithSink(store),
			service.WithPipelineOptions(
				segmentation.WithClusters(3),
				segmentation.WithReferenceTime(ref),
			),
		)

		Convey("When a segmentation runs end-to-end", func() {
			res, err := svc.Segment(ctx)
			So(err, ShouldBeNil)

			Convey("Then every active customer is assigned exactly once", func() {
				So(len(res.Assignments), ShouldEqual, 11)
				var stored int
				So(store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "CustomerSegments"`).Scan(&stored), ShouldBeNil)
				So(stored, ShouldEqual, 11)
			})

			Convey("Then the stored profiles partition the customers", func() {
				var total int
				So(store.DB().QueryRowContext(ctx,
					`SELECT SUM(customer_count) FROM "SegmentProfiles" WHERE run_id = $1`, res.RunID).Scan(&total), ShouldBeNil)
				So(total, ShouldEqual, 11)
			})
		})

		Convey("When the store reports are built", func() {
			rep, err := svc.Report(ctx)
			So(err, ShouldBeNil)

			Convey("Then they are persisted", func() {
				So(rep.BestSellers, ShouldResemble, []model.ProductCount{{Name: "Mug", QuantitySold: 1}})
				var n int
				So(store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "HighSpenders"`).Scan(&n), ShouldBeNil)
				So(n, ShouldEqual, 10)
			})
		})
	})
}
