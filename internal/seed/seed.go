// Package seed generates synthetic customers and orders for local stores and demos.
package seed

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/okian/custseg/internal/domain/model"
)

// Default generator settings.
const (
	DefaultCustomers = 200
	DefaultSeed      = 1
	deletedEvery     = 25 // every n-th customer is soft-deleted
)

// persona shapes one customer's ordering behavior.
type persona struct {
	name       string
	ordersMin  int
	ordersMax  int
	itemsMax   int
	recencyMax int // days since last update
}

var personas = []persona{
	{name: "loyal", ordersMin: 8, ordersMax: 20, itemsMax: 3, recencyMax: 14},
	{name: "big_spender", ordersMin: 2, ordersMax: 6, itemsMax: 8, recencyMax: 45},
	{name: "occasional", ordersMin: 1, ordersMax: 3, itemsMax: 2, recencyMax: 120},
	{name: "dormant", ordersMin: 1, ordersMax: 4, itemsMax: 2, recencyMax: 720},
	{name: "browser", ordersMin: 0, ordersMax: 0, itemsMax: 0, recencyMax: 60},
}

type product struct {
	name  string
	cents int
}

var catalog = []product{
	{"Sencha Green Tea", 1450},
	{"Earl Grey", 1200},
	{"Ceramic Mug", 1800},
	{"Cast Iron Teapot", 6400},
	{"Bamboo Whisk", 2200},
	{"抹茶 Ceremonial Grade", 3900},
	{"Café Blend", 1650},
	{"Gift Card", 5000},
}

// feeItem is appended to cash-on-delivery orders; reports filter it out.
const feeItem = "COD-Fees"

var (
	firstNames = []string{"Ada", "Bo", "Chen", "Dana", "Emil", "Farah", "Goran", "Hana", "Ivo", "Júlia"}
	lastNames  = []string{"Lee", "Ray", "Moe", "Okafor", "Silva", "Tanaka", "Novak", "Haddad", "Berg", "Iyer"}
)

// Dataset is a generated batch of source rows.
type Dataset struct {
	Customers []model.CustomerRecord
	Orders    []model.Order
}

// Generator produces reproducible datasets.
type Generator struct {
	customers int
	seed      int64
	now       time.Time
}

// New creates a Generator with DefaultCustomers customers and DefaultSeed.
func New(opts ...Option) *Generator {
	g := &Generator{customers: DefaultCustomers, seed: DefaultSeed, now: time.Now().UTC()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type lineItem struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Generate builds the dataset. The same seed and reference time always yield the same rows.
// A customer's orders_count and total_spent agree with its generated orders.
func (g *Generator) Generate() (Dataset, error) {
	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // reproducible fixtures
	ds := Dataset{Customers: make([]model.CustomerRecord, 0, g.customers)}

	for i := 0; i < g.customers; i++ {
		p := personas[rng.Intn(len(personas))]
		id := fmt.Sprintf("cust-%05d", i+1)
		created := g.now.AddDate(-2, 0, 0).Add(time.Duration(rng.Intn(365*24)) * time.Hour)
		updated := g.now.Add(-time.Duration(rng.Intn(p.recencyMax*24+1)) * time.Hour)
		if updated.Before(created) {
			updated = created
		}

		orders := p.ordersMin
		if p.ordersMax > p.ordersMin {
			orders += rng.Intn(p.ordersMax - p.ordersMin + 1)
		}

		step := updated.Sub(created) / time.Duration(orders+1)
		spent := 0
		for n := 0; n < orders; n++ {
			count := 1 + rng.Intn(p.itemsMax)
			items := make([]lineItem, 0, count+1)
			for j := 0; j < count; j++ {
				item := catalog[rng.Intn(len(catalog))]
				spent += item.cents
				items = append(items, lineItem{Name: item.name, Price: money(item.cents)})
			}
			if rng.Intn(5) == 0 {
				items = append(items, lineItem{Name: feeItem, Price: "0.00"})
			}
			body, err := json.Marshal(items)
			if err != nil {
				return Dataset{}, fmt.Errorf("encode items of %s: %w", id, err)
			}
			ds.Orders = append(ds.Orders, model.Order{
				ID:         fmt.Sprintf("%s-ord-%03d", id, n+1),
				CustomerID: id,
				Items:      body,
				CreatedAt:  created.Add(time.Duration(n+1) * step),
			})
		}

		ds.Customers = append(ds.Customers, model.CustomerRecord{
			ID:          id,
			FirstName:   firstNames[rng.Intn(len(firstNames))],
			LastName:    lastNames[rng.Intn(len(lastNames))],
			TotalSpent:  money(spent),
			OrdersCount: strconv.Itoa(orders),
			CreatedAt:   created,
			UpdatedAt:   updated,
			IsDeleted:   (i+1)%deletedEvery == 0,
		})
	}
	return ds, nil
}

func money(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
