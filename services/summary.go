package services

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"housing-listings/models"
)

// priceRegexp captures a dollar amount with an optional K/M suffix
var priceRegexp = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*([kKmM])?`)

// Summarize computes statistics over stored scraped listings. Listings whose
// sold price cannot be parsed still count towards the totals.
func Summarize(listings []*models.Listing) *models.Summary {
	s := &models.Summary{
		ByStatus: make(map[string]int),
		ByBroker: make(map[string]int),
	}
	if len(listings) == 0 {
		return s
	}
	s.TotalListings = len(listings)

	var total float64
	for _, l := range listings {
		s.ByStatus[orDefault(l.Status, "(unknown)")]++
		s.ByBroker[orDefault(l.Broker, "(unknown)")]++

		price, ok := parsePrice(l.SoldPrice)
		if !ok {
			continue
		}
		if s.PricedListings == 0 || price < s.MinPrice {
			s.MinPrice = price
		}
		if s.PricedListings == 0 || price > s.MaxPrice {
			s.MaxPrice = price
			s.MostExpensive = l
		}
		total += price
		s.PricedListings++
	}

	if s.PricedListings > 0 {
		s.AveragePrice = round2(total / float64(s.PricedListings))
	}
	return s
}

// parsePrice reads "$300,000", "315000" or "$1.2M" style prices.
func parsePrice(raw string) (float64, bool) {
	match := priceRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0, false
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil || val <= 0 {
		return 0, false
	}
	switch strings.ToLower(match[2]) {
	case "k":
		val *= 1_000
	case "m":
		val *= 1_000_000
	}
	return val, true
}

// PrintSummary renders the summary as tables.
func PrintSummary(w io.Writer, s *models.Summary) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetTitle("Scraped listings")
	overview.AppendRows([]table.Row{
		{"Total listings", s.TotalListings},
		{"With sold price", s.PricedListings},
	})
	if s.PricedListings > 0 {
		overview.AppendSeparator()
		overview.AppendRows([]table.Row{
			{"Average price", formatDollars(s.AveragePrice)},
			{"Minimum price", formatDollars(s.MinPrice)},
			{"Maximum price", formatDollars(s.MaxPrice)},
		})
	}
	if s.MostExpensive != nil {
		overview.AppendSeparator()
		overview.AppendRow(table.Row{"Most expensive", truncate(s.MostExpensive.Address, 48)})
	}
	overview.SetStyle(table.StyleRounded)
	overview.Render()

	printCounts(w, "Status", s.ByStatus)
	printCounts(w, "Broker", s.ByBroker)
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	type kv struct {
		key   string
		count int
	}
	rows := make([]kv, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, kv{k, c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{label, "Listings"})
	for _, r := range rows {
		t.AppendRow(table.Row{truncate(r.key, 40), r.count})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func formatDollars(v float64) string {
	whole := strconv.FormatInt(int64(v), 10)
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	cents := int64((v-float64(int64(v)))*100 + 0.5)
	if cents > 0 {
		return fmt.Sprintf("$%s.%02d", b.String(), cents)
	}
	return "$" + b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
