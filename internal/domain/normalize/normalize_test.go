package normalize_test

import (
	"math"
	"testing"

	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStandardize(t *testing.T) {
	Convey("Given a batch of feature vectors", t, func() {
		vecs := []model.FeatureVector{
			{CustomerID: "a", OrdersCount: 2, TotalSpent: 200, AverageOrderValue: 100, RecencyDays: 7},
			{CustomerID: "b", OrdersCount: 0, TotalSpent: 0, AverageOrderValue: 0, RecencyDays: 7},
			{CustomerID: "c", OrdersCount: 10, TotalSpent: 1000, AverageOrderValue: 100, RecencyDays: 7},
		}

		Convey("When standardizing", func() {
			out := normalize.Standardize(vecs)

			Convey("Then shape and order are preserved", func() {
				So(len(out), ShouldEqual, 3)
				So(len(out[0]), ShouldEqual, len(model.Columns))
			})

			Convey("Then varying columns have zero mean and unit variance", func() {
				for c := 0; c < 3; c++ {
					mean, sq := 0.0, 0.0
					for _, r := range out {
						mean += r[c]
					}
					mean /= 3
					for _, r := range out {
						sq += (r[c] - mean) * (r[c] - mean)
					}
					So(mean, ShouldAlmostEqual, 0, 1e-12)
					So(sq/3, ShouldAlmostEqual, 1, 1e-12)
				}
			})

			Convey("Then a zero-variance column becomes all zeros", func() {
				for _, r := range out {
					So(r[3], ShouldEqual, 0)
				}
			})

			Convey("Then the input vectors are untouched", func() {
				So(vecs[2].TotalSpent, ShouldEqual, 1000)
			})
		})

		Convey("When every value of a column is an inexact float", func() {
			same := []model.FeatureVector{{TotalSpent: 0.1}, {TotalSpent: 0.1}, {TotalSpent: 0.1}}
			out := normalize.Standardize(same)

			Convey("Then the column is still treated as constant", func() {
				for _, r := range out {
					So(r[1], ShouldEqual, 0)
				}
			})
		})
	})
}

func TestColumns(t *testing.T) {
	Convey("Given an empty matrix", t, func() {
		So(normalize.Columns(nil), ShouldBeNil)
	})

	Convey("Given a two-row matrix", t, func() {
		stats := normalize.Columns([][]float64{{1, 5}, {3, 5}})
		So(stats[0].Mean, ShouldAlmostEqual, 2, 1e-12)
		So(stats[0].StdDev, ShouldAlmostEqual, 1, 1e-12)
		So(stats[0].Constant, ShouldBeFalse)
		So(stats[1].Constant, ShouldBeTrue)
	})
}

func TestStandardizeLargeAmounts(t *testing.T) {
	Convey("Given a column with amounts near math.MaxFloat64", t, func() {
		vecs := []model.FeatureVector{
			{CustomerID: "a", OrdersCount: 1, TotalSpent: 1e308},
			{CustomerID: "b", OrdersCount: 2, TotalSpent: 1.5e308},
		}

		Convey("When computing column statistics", func() {
			stats := normalize.Columns(normalize.Matrix(vecs))

			Convey("Then the moments are finite and the column is not constant", func() {
				So(stats[1].Mean, ShouldAlmostEqual, 1.25e308, 1e294)
				So(stats[1].StdDev, ShouldAlmostEqual, 0.25e308, 1e294)
				So(stats[1].Constant, ShouldBeFalse)
			})
		})

		Convey("When standardizing", func() {
			out := normalize.Standardize(vecs)

			Convey("Then the column maps to -1 and 1", func() {
				So(out[0][1], ShouldAlmostEqual, -1, 1e-9)
				So(out[1][1], ShouldAlmostEqual, 1, 1e-9)
				for _, r := range out {
					for _, x := range r {
						So(math.IsNaN(x) || math.IsInf(x, 0), ShouldBeFalse)
					}
				}
			})
		})
	})
}
