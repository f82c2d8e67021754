package purchaseorder

import (
	"fmt"

	"github.com/zombor/po-reader/internal/extract"
)

// ItemView is a line item as shown to API clients
type ItemView struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	Amount      string  `json:"amount"`
}

// RecordView is the presentation shape of a record
type RecordView struct {
	VendorName    string     `json:"vendor_name"`
	VendorAddress string     `json:"vendor_address"`
	PONumber      string     `json:"po_number"`
	Date          string     `json:"date"`
	TotalAmount   string     `json:"total_amount"`
	LineItems     []ItemView `json:"line_items"`
}

func currency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// NewRecordView maps a record to its presentation shape
func NewRecordView(rec *extract.Record) *RecordView {
	view := &RecordView{
		VendorName:    rec.Customer,
		VendorAddress: rec.CustomerAddress,
		PONumber:      rec.PONumber,
		Date:          rec.OrderDate,
		TotalAmount:   currency(rec.InvoiceAmount),
		LineItems:     make([]ItemView, 0, len(rec.Items)),
	}
	for _, item := range rec.Items {
		view.LineItems = append(view.LineItems, ItemView{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   currency(item.Rate),
			Amount:      currency(item.Price),
		})
	}
	return view
}
