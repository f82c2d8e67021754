package extract

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/zombor/po-reader/internal/document"
)

var totalAmountPattern = regexp.MustCompile(`(?i)Total\s*(?:Amount)?\s*[:.]?\s*\$?([\d,]+\.\d{2})`)

// input is what every stage reads from.
type input struct {
	text   string
	lines  []string
	tables []document.Table
	shipTo string
	attn   string

	// strategy names the item strategy that produced the items
	strategy string
}

// stage fills in part of the record. Later stages may override fields set
// by earlier ones.
type stage struct {
	name string
	run  func(in *input, rec *Record)
}

var stages = []stage{
	{"customer", customerStage},
	{"po_number", poNumberStage},
	{"dates", dateStage},
	{"ordered_by", orderedByStage},
	{"addresses", addressStage},
	{"items", itemStage},
	{"amount", amountStage},
}

// Parse runs every extraction stage over an acquired document. It never
// fails: fields it cannot find are Unknown.
func Parse(doc *document.Document) *Record {
	rec, _ := parse(doc)
	return rec
}

// parse is Parse that also reports the winning item strategy, or "" when no
// items were found.
func parse(doc *document.Document) (*Record, string) {
	in := &input{
		text:   doc.Text,
		lines:  doc.Lines(),
		tables: doc.Tables,
		shipTo: doc.ShipTo,
		attn:   doc.Attn,
	}

	rec := newRecord(filepath.Base(doc.Path))
	for _, s := range stages {
		s.run(in, rec)
	}
	return rec, in.strategy
}

func customerStage(in *input, rec *Record) {
	rec.Customer = customerName(in.lines)
}

func poNumberStage(in *input, rec *Record) {
	rec.PONumber = poNumber(in.text, in.lines)
}

func dateStage(in *input, rec *Record) {
	rec.OrderDate, rec.DeliveryDate = dates(in.text, in.lines)
}

func orderedByStage(in *input, rec *Record) {
	rec.OrderedBy = orderedBy(in.lines)
}

// addressStage prefers the cropped regions and falls back to the lines
// following "bill to"/"ship to". A ship-to region also decides the customer.
func addressStage(in *input, rec *Record) {
	if in.attn != "" {
		rec.CustomerAddress = attnAddress(in.attn)
	} else {
		rec.CustomerAddress = addressBlock(in.lines, "bill to")
	}

	if in.shipTo != "" {
		if customer, address, ok := shipToAddress(in.shipTo); ok {
			rec.Customer = customer
			rec.DeliveryAddress = address
		}
	} else {
		rec.DeliveryAddress = addressBlock(in.lines, "ship to")
	}

	if rec.CustomerAddress == Unknown && rec.DeliveryAddress != Unknown {
		rec.CustomerAddress = rec.DeliveryAddress
	}
}

func itemStage(in *input, rec *Record) {
	if strategy, items := resolveItems(in); len(items) > 0 {
		rec.Items = items
		in.strategy = strategy
	}
}

// amountStage sums the line items, or reads a printed total when there are
// none.
func amountStage(in *input, rec *Record) {
	if len(rec.Items) > 0 {
		var sum float64
		for _, item := range rec.Items {
			sum += item.Price
		}
		rec.InvoiceAmount = sum
		return
	}

	rec.InvoiceAmount = 0
	if m := totalAmountPattern.FindStringSubmatch(in.text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			rec.InvoiceAmount = v
		}
	}
}
