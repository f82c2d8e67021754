package extract

// Unknown marks a field the heuristics ran for but could not resolve. It is
// a normal value, not an error.
const Unknown = "Unknown"

// LineItem is one ordered product.
type LineItem struct {
	Description string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Price       float64 `json:"price"`
}

// Record is the structured data extracted from one purchase order or
// invoice.
type Record struct {
	SourceFile      string     `json:"source_file"`
	Customer        string     `json:"customer"`
	CustomerAddress string     `json:"customer_address"`
	PONumber        string     `json:"po_number"`
	OrderDate       string     `json:"order_date"`
	DeliveryDate    string     `json:"delivery_date"`
	DeliveryAddress string     `json:"delivery_address"`
	OrderedBy       string     `json:"ordered_by"`
	InvoiceAmount   float64    `json:"invoice_amount"`
	Items           []LineItem `json:"items"`
}

func newRecord(sourceFile string) *Record {
	return &Record{
		SourceFile:      sourceFile,
		Customer:        Unknown,
		CustomerAddress: Unknown,
		PONumber:        Unknown,
		OrderDate:       Unknown,
		DeliveryDate:    Unknown,
		DeliveryAddress: Unknown,
		OrderedBy:       Unknown,
		Items:           []LineItem{},
	}
}
