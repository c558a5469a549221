package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pipeline"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.pipelineRuns.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_pipeline_pipeline_runs_total")
			})
		})

		Convey("When creating twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then registration panics on duplicates", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording sanitized values", func() {
			before := testutil.ToFloat64(globalManager.sanitizedValues.WithLabelValues("total_spent", "nan"))
			RecordSanitized("total_spent", "nan", 2)
			RecordSanitized("total_spent", "nan", 0)

			Convey("Then only positive counts are added", func() {
				after := testutil.ToFloat64(globalManager.sanitizedValues.WithLabelValues("total_spent", "nan"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When updating cluster sizes", func() {
			UpdateClusterSizes([]int{3, 0, 7})

			Convey("Then each label has a gauge", func() {
				So(testutil.ToFloat64(globalManager.clusterSize.WithLabelValues("0")), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.clusterSize.WithLabelValues("2")), ShouldEqual, 7)
			})
		})

		Convey("When recording the remaining helpers", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordPipelineRun(12, 3)
					RecordPipelineFailure("configuration")
					RecordZeroOrderCustomers(1)
					RecordFutureUpdates(1)
					RecordClustering(1.5, 4)
					RecordReportRows("HighSpenders", 10)
					RecordPublishError()
					UpdateQueueSize(1)
					UpdateQueueCapacity(10)
					RecordQueueRejected("full")
					RecordJob("succeeded", 5)
					UpdateWorkerCount(2)
					RecordDuplicateSubmission()
					RecordHTTPRequest("healthz", "GET", "200", 1)
				}, ShouldNotPanic)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
