// Package features derives per-customer behavioral metrics from raw customer records.
package features

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/pkg/logger"
	"github.com/okian/custseg/pkg/metrics"
)

const secondsPerDay = 24 * 60 * 60

// RecencyPolicy decides what happens to an updated_at later than the reference time.
type RecencyPolicy int

const (
	// RecencyClamp sets recency to zero and counts the record.
	RecencyClamp RecencyPolicy = iota
	// RecencyReject fails the batch with a DataQualityError.
	RecencyReject
)

// ParseRecencyPolicy maps "clamp" and "reject" to a policy.
func ParseRecencyPolicy(s string) (RecencyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return RecencyClamp, nil
	case "reject":
		return RecencyReject, nil
	}
	return RecencyClamp, model.NewConfigurationError("recency_policy", "unknown policy %q", s)
}

func (p RecencyPolicy) String() string {
	if p == RecencyReject {
		return "reject"
	}
	return "clamp"
}

// Engineer turns customer records into feature vectors. It holds configuration only.
type Engineer struct {
	reference time.Time
	policy    RecencyPolicy
	logger    logger.Logger
}

// New creates an Engineer. Without WithReferenceTime the current time is used per Build call.
func New(opts ...Option) *Engineer {
	e := &Engineer{
		policy: RecencyClamp,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build returns one vector per record, in input order, plus the sanitization counts.
// Any unparseable field aborts the whole batch.
func (e *Engineer) Build(ctx context.Context, records []model.CustomerRecord) ([]model.FeatureVector, model.SanitizeReport, error) {
	report := model.NewSanitizeReport()
	ref := e.reference
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.UTC()

	vectors := make([]model.FeatureVector, len(records))
	for i := range records {
		rec := &records[i]
		if rec.IsDeleted {
			return nil, model.SanitizeReport{}, model.NewDataQualityError("is_deleted", rec.ID, "true", errors.New("deleted record in input"))
		}

		spent, err := ParseAmount(rec)
		if err != nil {
			return nil, model.SanitizeReport{}, err
		}
		orders, err := ParseOrdersCount(rec)
		if err != nil {
			return nil, model.SanitizeReport{}, err
		}

		aov := 0.0
		if orders == 0 {
			report.ZeroOrders++
		} else {
			aov = spent / float64(orders)
		}

		recency, future := recencyDays(ref, rec.UpdatedAt)
		if future {
			if e.policy == RecencyReject {
				return nil, model.SanitizeReport{}, model.NewDataQualityError(
					"updated_at", rec.ID, rec.UpdatedAt.Format(time.RFC3339),
					errors.New("updated_at is after the reference time"))
			}
			report.FutureUpdates++
			recency = 0
		}

		vectors[i] = model.FeatureVector{
			CustomerID:        rec.ID,
			OrdersCount:       float64(orders),
			TotalSpent:        spent,
			AverageOrderValue: aov,
			RecencyDays:       recency,
		}
	}

	Sanitize(vectors, &report)
	e.observe(ctx, report)
	return vectors, report, nil
}

// observe logs one warning per column that needed sanitizing and feeds the counters.
func (e *Engineer) observe(ctx context.Context, report model.SanitizeReport) {
	for _, col := range model.Columns {
		nan, inf := report.NaN[col], report.Inf[col]
		metrics.RecordSanitized(col, "nan", nan)
		metrics.RecordSanitized(col, "inf", inf)
		if nan+inf > 0 {
			e.logger.Warn(ctx, "sanitized feature values",
				logger.String("column", col),
				logger.Int("nan", nan),
				logger.Int("inf", inf),
			)
		}
	}
	if report.ZeroOrders > 0 {
		metrics.RecordZeroOrderCustomers(report.ZeroOrders)
		e.logger.Debug(ctx, "average order value defaulted to zero", logger.Int("customers", report.ZeroOrders))
	}
	if report.FutureUpdates > 0 {
		metrics.RecordFutureUpdates(report.FutureUpdates)
		e.logger.Warn(ctx, "updated_at after reference time; recency clamped", logger.Int("customers", report.FutureUpdates))
	}
}

// Sanitize replaces NaN and infinite values with 0 in place and counts them per column.
func Sanitize(vectors []model.FeatureVector, report *model.SanitizeReport) {
	for i := range vectors {
		for c, v := range vectors[i].Values() {
			switch {
			case math.IsNaN(v):
				report.NaN[model.Columns[c]]++
			case math.IsInf(v, 0):
				report.Inf[model.Columns[c]]++
			default:
				continue
			}
			vectors[i].Set(c, 0)
		}
	}
}

// ParseAmount parses total_spent. Missing values are NaN; text that is not a number, or a
// negative amount, is a DataQualityError.
func ParseAmount(rec *model.CustomerRecord) (float64, error) {
	raw := strings.TrimSpace(rec.TotalSpent)
	if raw == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, model.NewDataQualityError(model.ColumnTotalSpent, rec.ID, rec.TotalSpent, err)
	}
	if v < 0 {
		return 0, model.NewDataQualityError(model.ColumnTotalSpent, rec.ID, rec.TotalSpent, errors.New("negative amount"))
	}
	return v, nil
}

// ParseOrdersCount parses orders_count as a non-negative integer. Missing values are errors.
func ParseOrdersCount(rec *model.CustomerRecord) (int, error) {
	raw := strings.TrimSpace(rec.OrdersCount)
	if raw == "" {
		return 0, model.NewDataQualityError(model.ColumnOrdersCount, rec.ID, "", errors.New("missing value"))
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewDataQualityError(model.ColumnOrdersCount, rec.ID, rec.OrdersCount, err)
	}
	if v < 0 {
		return 0, model.NewDataQualityError(model.ColumnOrdersCount, rec.ID, rec.OrdersCount, errors.New("negative count"))
	}
	return v, nil
}

// recencyDays returns whole days from updated to ref. A zero updated yields NaN.
// future reports updated > ref.
func recencyDays(ref, updated time.Time) (days float64, future bool) {
	if updated.IsZero() {
		return math.NaN(), false
	}
	if updated.After(ref) {
		return 0, true
	}
	// Unix seconds; time.Duration saturates past ~292 years
	return float64((ref.Unix() - updated.Unix()) / secondsPerDay), false
}
