package model

import "time"

// Feature column names in the order used by FeatureVector.Values.
const (
	ColumnOrdersCount       = "orders_count"
	ColumnTotalSpent        = "total_spent"
	ColumnAverageOrderValue = "average_order_value"
	ColumnRecencyDays       = "recency_days"
)

// Columns lists the feature columns in matrix order.
var Columns = []string{ //nolint:gochecknoglobals // fixed schema
	ColumnOrdersCount,
	ColumnTotalSpent,
	ColumnAverageOrderValue,
	ColumnRecencyDays,
}

// FeatureVector holds the behavioral metrics derived for one customer.
type FeatureVector struct {
	CustomerID        string  `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	OrdersCount       float64 `json:"orders_count" yaml:"orders_count"`
	TotalSpent        float64 `json:"total_spent" yaml:"total_spent"`
	AverageOrderValue float64 `json:"average_order_value" yaml:"average_order_value"`
	RecencyDays       float64 `json:"recency_days" yaml:"recency_days"`
}

// Values returns the numeric features in Columns order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.OrdersCount, f.TotalSpent, f.AverageOrderValue, f.RecencyDays}
}

// Set assigns the feature at column index i.
func (f *FeatureVector) Set(i int, v float64) {
	switch i {
	case 0:
		f.OrdersCount = v
	case 1:
		f.TotalSpent = v
	case 2:
		f.AverageOrderValue = v
	case 3:
		f.RecencyDays = v
	}
}

// Assignment maps a customer to its cluster label.
type Assignment struct {
	CustomerID string `json:"customer_id" yaml:"customer_id"`
	Label      int    `json:"cluster" yaml:"cluster"`
}

// ClusterProfile summarizes one cluster on the raw feature scale.
type ClusterProfile struct {
	Label int           `json:"cluster" yaml:"cluster"`
	Count int           `json:"count" yaml:"count"`
	Means FeatureVector `json:"means" yaml:"means"`
}

// SanitizeReport counts the recoverable data conditions met while building features.
type SanitizeReport struct {
	NaN           map[string]int `json:"nan" yaml:"nan"`
	Inf           map[string]int `json:"inf" yaml:"inf"`
	ZeroOrders    int            `json:"zero_orders" yaml:"zero_orders"`
	FutureUpdates int            `json:"future_updates" yaml:"future_updates"`
}

// NewSanitizeReport returns a report with every column present at zero.
func NewSanitizeReport() SanitizeReport {
	r := SanitizeReport{NaN: make(map[string]int, len(Columns)), Inf: make(map[string]int, len(Columns))}
	for _, c := range Columns {
		r.NaN[c] = 0
		r.Inf[c] = 0
	}
	return r
}

// Total returns the number of values replaced across all columns.
func (r SanitizeReport) Total() int {
	n := 0
	for _, c := range r.NaN {
		n += c
	}
	for _, c := range r.Inf {
		n += c
	}
	return n
}

// Result is the bundle handed to reporting collaborators after a segmentation run.
type Result struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	K             int              `json:"k" yaml:"k"`
	Seed          int64            `json:"seed" yaml:"seed"`
	ReferenceTime time.Time        `json:"reference_time" yaml:"reference_time"`
	Assignments   []Assignment     `json:"assignments" yaml:"assignments"`
	Profiles      []ClusterProfile `json:"profiles" yaml:"profiles"`
	Sanitized     SanitizeReport   `json:"sanitized" yaml:"sanitized"`
	Inertia       float64          `json:"inertia" yaml:"inertia"`
	Iterations    int              `json:"iterations" yaml:"iterations"`
}

// CustomerRank is one row of a customer leaderboard report.
type CustomerRank struct {
	CustomerID  string  `json:"customer_id" yaml:"customer_id"`
	Name        string  `json:"customer_name" yaml:"customer_name"`
	TotalSpent  float64 `json:"total_spent" yaml:"total_spent"`
	OrdersCount int     `json:"orders_count" yaml:"orders_count"`
}

// ProductCount is one row of the best sellers report.
type ProductCount struct {
	Name         string `json:"name" yaml:"name"`
	QuantitySold int    `json:"quantity_sold" yaml:"quantity_sold"`
}

// Report bundles the store reports derived from customers and orders.
type Report struct {
	GeneratedAt      time.Time      `json:"generated_at" yaml:"generated_at"`
	HighSpenders     []CustomerRank `json:"high_spenders" yaml:"high_spenders"`
	FrequentShoppers []CustomerRank `json:"frequent_shoppers" yaml:"frequent_shoppers"`
	BestSellers      []ProductCount `json:"best_selling_products" yaml:"best_selling_products"`
}
