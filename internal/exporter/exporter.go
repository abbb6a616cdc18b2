// Package exporter writes invoices out as CSV, XLSX, a JSON archive or a
// checksummed backup.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/xuri/excelize/v2"
)

// Headers of the tabular exports.
var Headers = []string{"Number", "Date", "Client", "Total HT", "Total TTC", "Status", "Vendor"}

// SheetName is the worksheet holding the XLSX export.
const SheetName = "Sheet1"

// Row is one invoice line of a tabular export.
type Row struct {
	Number   string
	Date     string
	Client   string
	TotalHT  float64
	TotalTTC float64
	Status   models.InvoiceStatus
	Vendor   string
}

func RowOf(inv models.Invoice) Row {
	return Row{
		Number:   inv.Number,
		Date:     inv.Date,
		Client:   inv.Client.Name,
		TotalHT:  inv.Subtotal,
		TotalTTC: inv.TotalTtc,
		Status:   inv.Status,
		Vendor:   inv.Vendor,
	}
}

// Cells returns the row as text, totals with two decimals.
func (r Row) Cells() []string {
	return []string{
		r.Number,
		r.Date,
		r.Client,
		strconv.FormatFloat(r.TotalHT, 'f', 2, 64),
		strconv.FormatFloat(r.TotalTTC, 'f', 2, 64),
		string(r.Status),
		r.Vendor,
	}
}

func values(r Row) []any {
	return []any{r.Number, r.Date, r.Client, r.TotalHT, r.TotalTTC, string(r.Status), r.Vendor}
}

// WriteCSV writes the header and one row per invoice.
func WriteCSV(w io.Writer, invoices []models.Invoice) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, inv := range invoices {
		if err := cw.Write(RowOf(inv).Cells()); err != nil {
			return fmt.Errorf("write csv row %s: %w", inv.Number, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same table as WriteCSV into a workbook. Totals are
// stored as numbers with a 0.00 format.
func WriteXLSX(w io.Writer, invoices []models.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", h, err)
		}
	}
	for i, inv := range invoices {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := values(RowOf(inv))
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("set row %s: %w", inv.Number, err)
		}
	}

	if len(invoices) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return fmt.Errorf("number style: %w", err)
		}
		last := fmt.Sprintf("E%d", len(invoices)+1)
		if err := f.SetCellStyle(SheetName, "D2", last, style); err != nil {
			return fmt.Errorf("apply number style: %w", err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "G", 16); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteJSON writes v as JSON indented with two spaces.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// FileName returns "<prefix>_YYYY-MM-DD.<ext>".
func FileName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("2006-01-02"), ext)
}
