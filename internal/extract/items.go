package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// itemStrategy is one way of finding line items. Strategies are tried in
// order and the first one that yields items wins.
type itemStrategy interface {
	name() string
	items(in *input) []LineItem
}

var itemStrategies = []itemStrategy{
	tableStrategy{},
	tokenScanStrategy{},
}

func resolveItems(in *input) (string, []LineItem) {
	for _, s := range itemStrategies {
		if items := s.items(in); len(items) > 0 {
			return s.name(), items
		}
	}
	return "", nil
}

var (
	tableKeywords = map[string]bool{
		"qty": true, "quantity": true, "units": true, "count": true,
		"description": true, "item": true, "product": true, "material": true, "sku": true,
		"amount": true, "price": true, "rate": true, "cost": true, "total": true,
	}
	qtyColumn   = []string{"qty", "quantity", "units", "count"}
	descColumn  = []string{"description", "item", "product", "material", "sku", "details"}
	priceColumn = []string{"amount", "total", "ext price", "extended"}
	rateColumn  = []string{"rate", "price", "unit", "cost"}
)

// columns maps line-item roles to table column indices; -1 means absent.
type columns struct {
	qty, desc, rate, price int
}

// tableStrategy reads items from tables whose header names the columns.
type tableStrategy struct{}

func (tableStrategy) name() string { return "table" }

func (tableStrategy) items(in *input) []LineItem {
	var items []LineItem
	for _, table := range in.tables {
		if len(table) == 0 {
			continue
		}
		cols, ok := mapColumns(table[0])
		if !ok {
			continue
		}
		for _, row := range table[1:] {
			if item, ok := tableRow(row, cols); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

// mapColumns assigns each header cell to at most one role. The first column
// matching a role wins. A table without a description column is skipped.
func mapColumns(header []string) (columns, bool) {
	cols := columns{qty: -1, desc: -1, rate: -1, price: -1}

	names := make([]string, len(header))
	relevant := false
	for i, cell := range header {
		names[i] = strings.ToLower(strings.TrimSpace(cell))
		relevant = relevant || tableKeywords[names[i]]
	}
	if !relevant {
		return cols, false
	}

	assign := func(idx *int, i int) {
		if *idx == -1 {
			*idx = i
		}
	}
	for i, name := range names {
		if name == "" {
			continue
		}
		switch {
		case containsAny(name, qtyColumn):
			assign(&cols.qty, i)
		case containsAny(name, descColumn):
			assign(&cols.desc, i)
		case containsAny(name, priceColumn):
			assign(&cols.price, i)
		case containsAny(name, rateColumn):
			assign(&cols.rate, i)
		}
	}
	return cols, cols.desc != -1
}

func tableRow(row []string, cols columns) (LineItem, bool) {
	empty := true
	for _, cell := range row {
		if cell != "" {
			empty = false
			break
		}
	}
	if empty {
		return LineItem{}, false
	}

	item := LineItem{
		Description: strings.TrimSpace(cellAt(row, cols.desc)),
		Quantity:    parseQuantity(cellAt(row, cols.qty)),
		Rate:        parseAmount(cellAt(row, cols.rate)),
		Price:       parseAmount(cellAt(row, cols.price)),
	}
	if item.Price == 0 && item.Quantity > 0 && item.Rate > 0 {
		item.Price = item.Quantity * item.Rate
	}

	if item.Description == "" || (item.Quantity <= 0 && item.Rate <= 0 && item.Price <= 0) {
		return LineItem{}, false
	}
	// Credits and returns are not line items
	if item.Quantity < 0 || item.Rate < 0 || item.Price < 0 {
		return LineItem{}, false
	}
	return item, true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseQuantity accepts values like "12 ea". Anything unparsable is zero.
func parseQuantity(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "ea", ""))
	v, _ := parseNumber(s)
	return v
}

// parseAmount accepts currency values like "$1,200.00". Anything unparsable
// is zero.
func parseAmount(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	v, _ := parseNumber(strings.TrimSpace(s))
	return v
}

// parseNumber parses a plain decimal number. NaN, infinities and hex floats
// are rejected.
func parseNumber(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpP") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

var (
	scanHeaderWords = []string{
		"item", "description", "qty", "quantity", "product", "material", "service",
		"part", "sku", "details", "unit price", "amount", "price",
	}
	contactWords      = []string{"page", "phone", "fax", "email", "bill to", "ship to"}
	continuationWords = []string{"oz)", "--", "and", "with", "the"}

	totalLinePattern = regexp.MustCompile(`^\s*total`)
)

const (
	maxQuantity       = 10000
	maxRate           = 1000
	maxPrice          = 100000
	maxSinglePrice    = 500
	minSinglePrice    = 0.01
	minDescription    = 3
	minSingleDescribe = 10
	totalLineMaxLen   = 40
)

// tokenScanStrategy reads items from raw text lines that end in numbers.
// Lines after the item header are items; lines before it are only used when
// nothing follows the header.
type tokenScanStrategy struct{}

func (tokenScanStrategy) name() string { return "token-scan" }

func (tokenScanStrategy) items(in *input) []LineItem {
	var items, potential []LineItem
	scanning := false

	for _, line := range in.lines {
		lower := strings.ToLower(line)

		if !scanning && containsAny(lower, scanHeaderWords) {
			scanning = true
			continue
		}

		if isTotalLine(line, lower) {
			break
		}
		if shortDatePattern.MatchString(line) {
			continue
		}

		item, ok := scanLine(line)
		if !ok {
			continue
		}
		if scanning {
			items = append(items, item)
		} else {
			potential = append(potential, item)
		}
	}

	if len(items) == 0 {
		return potential
	}
	return items
}

func isTotalLine(line, lower string) bool {
	return strings.Contains(lower, "total") &&
		!strings.Contains(lower, "subtotal") &&
		utf8.RuneCountInString(line) < totalLineMaxLen &&
		totalLinePattern.MatchString(lower)
}

// scanLine splits a line into description words and numbers and decides
// from the count of numbers what they mean.
func scanLine(line string) (LineItem, bool) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(line)

	var nums []float64
	var words []string
	for _, token := range strings.Fields(clean) {
		if v, ok := parseNumber(token); ok {
			nums = append(nums, v)
			continue
		}
		words = append(words, token)
	}

	for _, v := range nums {
		if v < 0 {
			return LineItem{}, false
		}
	}

	desc := strings.Join(words, " ")
	if utf8.RuneCountInString(desc) < minDescription || containsAny(strings.ToLower(desc), contactWords) {
		return LineItem{}, false
	}

	switch n := len(nums); {
	case n >= 3:
		qty, rate, price := nums[n-3], nums[n-2], nums[n-1]
		if qty >= maxQuantity || rate >= maxRate {
			return LineItem{}, false
		}
		expected := qty * rate
		matches := math.Abs(expected-price) < math.Max(0.1, expected*0.01)
		if matches || (price > 0 && price < maxPrice) {
			return LineItem{Description: desc, Quantity: qty, Rate: rate, Price: price}, true
		}
	case n == 2:
		qty, rate := nums[0], nums[1]
		if qty >= maxQuantity || rate >= maxRate {
			return LineItem{}, false
		}
		if price := qty * rate; price < maxPrice {
			return LineItem{Description: desc, Quantity: qty, Rate: rate, Price: price}, true
		}
	case n == 1:
		price := nums[0]
		if price > minSinglePrice && price < maxSinglePrice && looksLikeProduct(desc) {
			return LineItem{Description: desc, Quantity: 1, Rate: price, Price: price}, true
		}
	}
	return LineItem{}, false
}

// looksLikeProduct guards single-number lines, which are often wrapped
// description text.
func looksLikeProduct(desc string) bool {
	if utf8.RuneCountInString(desc) <= minSingleDescribe {
		return false
	}
	lower := strings.ToLower(desc)
	for _, prefix := range continuationWords {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return strings.IndexFunc(desc, unicode.IsLetter) >= 0
}
