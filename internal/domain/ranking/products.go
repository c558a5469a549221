package ranking

import (
	"cmp"
	"encoding/json"
	"iter"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/custseg/internal/domain/model"
)

// DefaultDenylist holds the line items that are not products.
var DefaultDenylist = []string{"COD-Fees"}

type lineItem struct {
	Name *string `json:"name"`
}

// ProductNames yields the product name of every line item of every order, in order.
// Names are trimmed and NFC normalized. Items that are not a JSON array, entries without a
// name and blank names are skipped. The sequence decodes lazily and can be ranged over again.
func ProductNames(orders []model.Order) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, o := range orders {
			var items []lineItem
			if err := json.Unmarshal(o.Items, &items); err != nil {
				continue
			}
			for _, it := range items {
				if it.Name == nil {
					continue
				}
				name := norm.NFC.String(strings.TrimSpace(*it.Name))
				if name == "" {
					continue
				}
				if !yield(name) {
					return
				}
			}
		}
	}
}

// Denylist excludes names that equal one of its entries under Unicode case folding.
type Denylist struct {
	folded map[string]struct{}
}

// NewDenylist builds a Denylist from names.
func NewDenylist(names ...string) Denylist {
	d := Denylist{folded: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if key := fold(n); key != "" {
			d.folded[key] = struct{}{}
		}
	}
	return d
}

// Allow reports whether name is not denied.
func (d Denylist) Allow(name string) bool {
	_, denied := d.folded[fold(name)]
	return !denied
}

// Len returns the number of entries.
func (d Denylist) Len() int {
	return len(d.folded)
}

// fold uses a fresh Caser per call; a Caser must not be shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Tally counts allowed names. The result is ordered by count, highest first, with ties in
// first-seen order.
func Tally(names iter.Seq[string], allow func(string) bool) []model.ProductCount {
	index := make(map[string]int)
	var counts []model.ProductCount
	for name := range names {
		if allow != nil && !allow(name) {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(counts)
			index[name] = i
			counts = append(counts, model.ProductCount{Name: name})
		}
		counts[i].QuantitySold++
	}
	slices.SortStableFunc(counts, func(a, b model.ProductCount) int {
		return cmp.Compare(b.QuantitySold, a.QuantitySold)
	})
	return counts
}

// BestSellers returns the n most sold products across orders, skipping denied names.
// n <= 0 means DefaultTopProducts.
func BestSellers(orders []model.Order, deny Denylist, n int) []model.ProductCount {
	return top(Tally(ProductNames(orders), deny.Allow), n, DefaultTopProducts)
}
