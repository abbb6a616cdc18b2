// Package importer reads clients, invoice lines and invoices from CSV or JSON
// files into a models.ImportBatch. Records missing a required field are
// dropped and reported as localised warnings; only unreadable input is an
// error.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diewo77/bon-livraison/internal/i18n"
	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/diewo77/bon-livraison/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrEmptyFile     = errors.New("empty_file")
	ErrUnknownFormat = errors.New("unknown_format")
)

// Defaults applied to imported CSV lines.
const (
	DefaultUnit     = "U"
	DefaultTvaRate  = 20.0
	DefaultQuantity = 1.0
)

// Importer parses import files. Lang selects the language of warnings.
type Importer struct {
	Lang  string
	NewID func() string
}

func New(lang string) *Importer {
	if lang == "" {
		lang = i18n.DefaultLang
	}
	return &Importer{Lang: lang, NewID: uuid.NewString}
}

// Parse picks the parser from the file extension (.csv or .json).
func (im *Importer) Parse(name string, r io.Reader) (models.ImportBatch, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return im.ParseCSV(r)
	case ".json":
		return im.ParseJSON(r)
	}
	return models.ImportBatch{}, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// ParseCSV reads a CSV file whose header row tells what it holds:
// Name+Code for clients, Reference+Designation for lines, Number+Date for
// invoices. Header matching ignores case; unknown columns are ignored.
func (im *Importer) ParseCSV(r io.Reader) (models.ImportBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return models.ImportBatch{}, fmt.Errorf("read csv: %w", err)
	}
	rows = dropBlank(rows)
	if len(rows) == 0 {
		return models.ImportBatch{}, ErrEmptyFile
	}

	header := make([]string, len(rows[0]))
	cols := map[string]bool{}
	for i, h := range rows[0] {
		header[i] = strings.ToLower(clean(h))
		cols[header[i]] = true
	}
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = clean(row[i])
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}

	var batch models.ImportBatch
	switch {
	case cols["name"] && cols["code"]:
		im.clientsFromCSV(records, &batch)
	case cols["reference"] && cols["designation"]:
		im.itemsFromCSV(records, &batch)
	case cols["number"] && cols["date"]:
		im.invoicesFromCSV(records, &batch)
	default:
		batch.Warnings = append(batch.Warnings, i18n.T(im.Lang, "import.unknown_columns"))
	}
	return batch, nil
}

func (im *Importer) clientsFromCSV(records []map[string]string, batch *models.ImportBatch) {
	var clients []models.ClientInfo
	for _, rec := range records {
		c := models.ClientInfo{ID: im.NewID()}
		for k, v := range rec {
			if k == "id" {
				continue
			}
			c.Set(k, v)
		}
		clients = append(clients, c)
	}
	batch.Clients = im.keepClients(clients, 0, batch)
}

func (im *Importer) itemsFromCSV(records []map[string]string, batch *models.ImportBatch) {
	var items []models.ItemInput
	for _, rec := range records {
		items = append(items, models.ItemInput{
			Reference:   rec["reference"],
			Designation: rec["designation"],
			Unit:        orDefault(rec["unit"], DefaultUnit),
			UnitPrice:   number(rec["unitprice"], 0),
			TvaRate:     number(rec["tvarate"], DefaultTvaRate),
			Quantity:    number(rec["quantity"], DefaultQuantity),
			Discount:    number(rec["discount"], 0),
		})
	}
	batch.Items = im.keepItems(items, 0, batch)
}

func (im *Importer) invoicesFromCSV(records []map[string]string, batch *models.ImportBatch) {
	var invoices []models.InvoiceInput
	for _, rec := range records {
		in := models.InvoiceInput{
			Number:    rec["number"],
			Date:      rec["date"],
			DueDate:   rec["duedate"],
			Vendor:    rec["vendor"],
			Reference: rec["reference"],
			Status:    models.InvoiceStatus(orDefault(rec["status"], string(models.InvoiceStatusDraft))),
			Currency:  rec["currency"],
		}
		if code := rec["clientcode"]; code != "" {
			name := orDefault(rec["client"], code)
			in.Client = &models.ClientInfo{ID: im.NewID(), Code: code, Name: name}
		}
		invoices = append(invoices, in)
	}
	batch.Invoices = im.keepInvoices(invoices, 0, batch)
}

type payload struct {
	Clients  json.RawMessage `json:"clients"`
	Items    json.RawMessage `json:"items"`
	Invoices json.RawMessage `json:"invoices"`
}

type envelope struct {
	payload
	Data *payload `json:"data"`
}

// ParseJSON reads either a bare {clients, items, invoices} object or one
// wrapped in {"data": {...}}, which includes backup files. Each record is
// read on its own, so a malformed record is dropped and counted instead of
// failing the file.
func (im *Importer) ParseJSON(r io.Reader) (models.ImportBatch, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ImportBatch{}, ErrEmptyFile
		}
		return models.ImportBatch{}, fmt.Errorf("decode json: %w", err)
	}
	p := env.payload
	if env.Data != nil {
		p = *env.Data
	}

	var batch models.ImportBatch

	clientRecs, badClients := records(p.Clients)
	clients := make([]models.ClientInfo, 0, len(clientRecs))
	for _, rec := range clientRecs {
		c := rec.client()
		if c.ID == "" {
			c.ID = im.NewID()
		}
		clients = append(clients, c)
	}
	batch.Clients = im.keepClients(clients, badClients, &batch)

	itemRecs, badItems := records(p.Items)
	items := make([]models.ItemInput, 0, len(itemRecs))
	for _, rec := range itemRecs {
		items = append(items, rec.item())
	}
	batch.Items = im.keepItems(items, badItems, &batch)

	invoiceRecs, badInvoices := records(p.Invoices)
	invoices := make([]models.InvoiceInput, 0, len(invoiceRecs))
	for _, rec := range invoiceRecs {
		invoices = append(invoices, rec.invoice())
	}
	batch.Invoices = im.keepInvoices(invoices, badInvoices, &batch)
	return batch, nil
}

func (im *Importer) keepClients(in []models.ClientInfo, unreadable int, batch *models.ImportBatch) []models.ClientInfo {
	var out []models.ClientInfo
	for _, c := range in {
		if validation.Valid(c) {
			out = append(out, c)
		}
	}
	im.warn(batch, "import.clients_ignored", len(in)-len(out)+unreadable)
	return out
}

func (im *Importer) keepItems(in []models.ItemInput, unreadable int, batch *models.ImportBatch) []models.ItemInput {
	var out []models.ItemInput
	for _, it := range in {
		if validation.Valid(it) {
			out = append(out, it)
		}
	}
	im.warn(batch, "import.items_ignored", len(in)-len(out)+unreadable)
	return out
}

func (im *Importer) keepInvoices(in []models.InvoiceInput, unreadable int, batch *models.ImportBatch) []models.InvoiceInput {
	var out []models.InvoiceInput
	for _, inv := range in {
		v := validation.Violations{}
		validation.Required("number", inv.Number, v)
		validation.Required("date", inv.Date, v)
		if v.Empty() {
			out = append(out, inv)
		}
	}
	im.warn(batch, "import.invoices_ignored", len(in)-len(out)+unreadable)
	return out
}

func (im *Importer) warn(batch *models.ImportBatch, code string, dropped int) {
	if dropped > 0 {
		batch.Warnings = append(batch.Warnings, i18n.Tf(im.Lang, code, dropped))
	}
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if clean(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// clean strips surrounding whitespace and stray quotes.
func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// number parses s, falling back to def when s is empty or not a number.
func number(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}
