package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/okian/custseg/internal/domain/model"
)

const columnGap = "  "

// writeTable writes headers, a dash rule and rows with columns padded to their display width.
// The last column is not padded.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if cw := runewidth.StringWidth(row[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	bw := bufio.NewWriter(w)
	line := func(cells []string) {
		for i := range widths {
			if i > 0 {
				bw.WriteString(columnGap)
			}
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			bw.WriteString(cell)
			if i < len(widths)-1 {
				bw.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			}
		}
		bw.WriteByte('\n')
	}

	line(headers)
	rule := make([]string, len(widths))
	for i, wd := range widths {
		rule[i] = strings.Repeat("-", wd)
	}
	line(rule)
	for _, row := range rows {
		line(row)
	}
	return bw.Flush()
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderProfiles writes one row per segment with its size and raw-scale feature means.
func RenderProfiles(w io.Writer, profiles []model.ClusterProfile) error {
	headers := []string{"SEGMENT", "CUSTOMERS", "ORDERS", "TOTAL SPENT", "AVG ORDER", "RECENCY DAYS"}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			strconv.Itoa(p.Label),
			strconv.Itoa(p.Count),
			decimal(p.Means.OrdersCount),
			decimal(p.Means.TotalSpent),
			decimal(p.Means.AverageOrderValue),
			decimal(p.Means.RecencyDays),
		})
	}
	return writeTable(w, headers, rows)
}

// RenderCustomers writes a customer leaderboard.
func RenderCustomers(w io.Writer, ranks []model.CustomerRank) error {
	headers := []string{"#", "CUSTOMER", "NAME", "TOTAL SPENT", "ORDERS"}
	rows := make([][]string, 0, len(ranks))
	for i, r := range ranks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.CustomerID,
			r.Name,
			decimal(r.TotalSpent),
			strconv.Itoa(r.OrdersCount),
		})
	}
	return writeTable(w, headers, rows)
}

// RenderProducts writes the best sellers table.
func RenderProducts(w io.Writer, products []model.ProductCount) error {
	headers := []string{"#", "PRODUCT", "SOLD"}
	rows := make([][]string, 0, len(products))
	for i, p := range products {
		rows = append(rows, []string{strconv.Itoa(i + 1), p.Name, strconv.Itoa(p.QuantitySold)})
	}
	return writeTable(w, headers, rows)
}

// RenderResult writes the run header, the profile table and the sanitization summary.
func RenderResult(w io.Writer, res *model.Result) error {
	if _, err := fmt.Fprintf(w, "Run %s\nk=%d seed=%d reference=%s customers=%d inertia=%.4f iterations=%d\n\n",
		res.RunID, res.K, res.Seed, res.ReferenceTime.UTC().Format(time.RFC3339),
		len(res.Assignments), res.Inertia, res.Iterations); err != nil {
		return err
	}
	if err := RenderProfiles(w, res.Profiles); err != nil {
		return err
	}
	return renderSanitized(w, res.Sanitized)
}

func renderSanitized(w io.Writer, s model.SanitizeReport) error {
	if _, err := fmt.Fprintf(w, "\nSanitized values: %d, zero-order customers: %d, future updates: %d\n",
		s.Total(), s.ZeroOrders, s.FutureUpdates); err != nil {
		return err
	}
	var cols []string
	for c, n := range s.NaN {
		if n > 0 || s.Inf[c] > 0 {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	sort.Strings(cols)
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []string{c, strconv.Itoa(s.NaN[c]), strconv.Itoa(s.Inf[c])})
	}
	return writeTable(w, []string{"COLUMN", "MISSING", "INFINITE"}, rows)
}

// RenderReport writes the three store reports one after another.
func RenderReport(w io.Writer, rep *model.Report) error {
	sections := []struct {
		title  string
		render func() error
	}{
		{"High spenders", func() error { return RenderCustomers(w, rep.HighSpenders) }},
		{"Frequent shoppers", func() error { return RenderCustomers(w, rep.FrequentShoppers) }},
		{"Best selling products", func() error { return RenderProducts(w, rep.BestSellers) }},
	}
	for i, s := range sections {
		prefix := ""
		if i > 0 {
			prefix = "\n"
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix, s.title); err != nil {
			return err
		}
		if err := s.render(); err != nil {
			return err
		}
	}
	return nil
}

// RenderStatus writes a job status and, once finished, its result.
func RenderStatus(w io.Writer, st *model.RunStatus) error {
	if _, err := fmt.Fprintf(w, "Run %s: %s\n", st.ID, st.State); err != nil {
		return err
	}
	if st.Error != "" {
		if _, err := fmt.Fprintf(w, "error: %s\n", st.Error); err != nil {
			return err
		}
	}
	if st.Result == nil {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return RenderResult(w, st.Result)
}
