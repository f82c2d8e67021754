package purchaseorder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/po-reader/internal/extract"
)

const exportSheet = "Purchase Orders"

var exportWidths = []struct {
	start, end string
	width      float64
}{
	{"A", "A", 28}, // source file
	{"B", "C", 36}, // customer
	{"G", "G", 36}, // delivery address
	{"J", "J", 40}, // description
}

// ExportColumns is the header row of CSV and XLSX exports
var ExportColumns = []string{
	"source_file",
	"customer",
	"customer_address",
	"po_number",
	"order_date",
	"delivery_date",
	"delivery_address",
	"ordered_by",
	"invoice_amount",
	"description",
	"quantity",
	"rate",
	"price",
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// exportRows flattens records to one row per line item, repeating the
// header fields. A record without items still gets one row.
func exportRows(recs []*extract.Record) [][]string {
	var rows [][]string
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		head := []string{
			rec.SourceFile,
			rec.Customer,
			rec.CustomerAddress,
			rec.PONumber,
			rec.OrderDate,
			rec.DeliveryDate,
			rec.DeliveryAddress,
			rec.OrderedBy,
			fmt.Sprintf("%.2f", rec.InvoiceAmount),
		}
		if len(rec.Items) == 0 {
			rows = append(rows, append(append([]string{}, head...), "", "", "", ""))
			continue
		}
		for _, item := range rec.Items {
			row := append([]string{}, head...)
			row = append(row,
				item.Description,
				formatNumber(item.Quantity),
				fmt.Sprintf("%.2f", item.Rate),
				fmt.Sprintf("%.2f", item.Price),
			)
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes records as CSV with a header row
func WriteCSV(w io.Writer, recs ...*extract.Record) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(ExportColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, row := range exportRows(recs) {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteXLSX writes records as a single-sheet workbook
func WriteXLSX(w io.Writer, recs ...*extract.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(exportSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	index, err := f.GetSheetIndex(exportSheet)
	if err != nil {
		return fmt.Errorf("finding sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(exportSheet, cell, v)
	}

	for i, h := range ExportColumns {
		if err := write(i+1, 1, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	row := 2
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		items := rec.Items
		if len(items) == 0 {
			items = []extract.LineItem{{}}
		}
		for _, item := range items {
			values := []any{
				rec.SourceFile,
				rec.Customer,
				rec.CustomerAddress,
				rec.PONumber,
				rec.OrderDate,
				rec.DeliveryDate,
				rec.DeliveryAddress,
				rec.OrderedBy,
				rec.InvoiceAmount,
			}
			if len(rec.Items) == 0 {
				values = append(values, "", "", "", "")
			} else {
				values = append(values, item.Description, item.Quantity, item.Rate, item.Price)
			}
			for col, v := range values {
				if err := write(col+1, row, v); err != nil {
					return fmt.Errorf("writing row %d: %w", row, err)
				}
			}
			row++
		}
	}

	// Widen the text columns
	for _, width := range exportWidths {
		if err := f.SetColWidth(exportSheet, width.start, width.end, width.width); err != nil {
			return fmt.Errorf("xlsx column width %s: %w", width.start, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}
