// Package ranking builds the store reports: customer leaderboards and best selling products.
package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/custseg/internal/domain/features"
	"github.com/okian/custseg/internal/domain/model"
)

// Default report sizes.
const (
	DefaultTopCustomers = 10
	DefaultTopProducts  = 5
)

// HighSpenders returns the n customers with the largest total_spent. Ties keep input order.
// A missing amount ranks as zero. n <= 0 means DefaultTopCustomers.
func HighSpenders(records []model.CustomerRecord, n int) ([]model.CustomerRank, error) {
	rows, err := rows(records)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, func(a, b model.CustomerRank) int {
		return cmp.Compare(b.TotalSpent, a.TotalSpent)
	})
	return top(rows, n, DefaultTopCustomers), nil
}

// FrequentShoppers returns the n customers with the most orders. Ties keep input order.
func FrequentShoppers(records []model.CustomerRecord, n int) ([]model.CustomerRank, error) {
	rows, err := rows(records)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, func(a, b model.CustomerRank) int {
		return cmp.Compare(b.OrdersCount, a.OrdersCount)
	})
	return top(rows, n, DefaultTopCustomers), nil
}

func rows(records []model.CustomerRecord) ([]model.CustomerRank, error) {
	out := make([]model.CustomerRank, 0, len(records))
	for i := range records {
		rec := &records[i]
		spent, err := features.ParseAmount(rec)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(spent) || math.IsInf(spent, 0) {
			spent = 0
		}
		orders, err := features.ParseOrdersCount(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, model.CustomerRank{
			CustomerID:  rec.ID,
			Name:        rec.Name(),
			TotalSpent:  spent,
			OrdersCount: orders,
		})
	}
	return out, nil
}

func top[T any](rows []T, n, def int) []T {
	if n <= 0 {
		n = def
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
