package services

import (
	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/sirupsen/logrus"
)

// ImportReport counts what ApplyImport did with a batch.
type ImportReport struct {
	ClientsAdded    int
	ClientsSkipped  int
	ItemsAdded      int
	InvoicesAdded   int
	InvoicesSkipped int
	Warnings        []string
}

// ItemFromInput turns an imported line into an invoice item with a fresh id.
// The amount is computed, never taken from the import.
func (s *InvoiceService) ItemFromInput(in models.ItemInput) models.InvoiceItem {
	return models.InvoiceItem{
		ID:          s.tracker.NewID(),
		Reference:   in.Reference,
		Designation: in.Designation,
		Quantity:    finite(in.Quantity),
		Unit:        in.Unit,
		UnitPrice:   finite(in.UnitPrice),
		Amount:      ComputeLineAmount(in.Quantity, in.UnitPrice),
		TvaRate:     finite(in.TvaRate),
		Discount:    finite(in.Discount),
	}
}

// InvoiceFromInput builds a complete invoice at version 1 from a partial
// imported record.
func (s *InvoiceService) InvoiceFromInput(in models.InvoiceInput) models.Invoice {
	items := make([]models.InvoiceItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, s.ItemFromInput(it))
	}
	var client models.ClientInfo
	if in.Client != nil {
		client = *in.Client
	}
	inv := s.NewInvoice(NewInvoiceParams{
		Number:    in.Number,
		Date:      in.Date,
		DueDate:   in.DueDate,
		Reference: in.Reference,
		Vendor:    in.Vendor,
		Client:    client,
		Items:     items,
		Advance:   in.Advance,
		Currency:  in.Currency,
		TvaMode:   in.TvaMode,
	})
	if in.Status.Valid() && in.Status != inv.Status {
		// the status comes with the record: part of creation, not a mutation
		inv.Status = in.Status
		inv.History[0].Snapshot.Status = in.Status
	}
	return inv
}

// ApplyImport merges a batch into the workspace. Clients are added unless
// their code is already known, items are appended to the current invoice as
// one edit, invoices join the archive unless their number is taken.
func (s *InvoiceService) ApplyImport(ws models.Workspace, batch models.ImportBatch) (models.Workspace, ImportReport) {
	report := ImportReport{Warnings: append([]string(nil), batch.Warnings...)}
	out := ws
	out.Clients = append([]models.ClientInfo(nil), ws.Clients...)
	out.Invoices = append([]models.Invoice(nil), ws.Invoices...)

	for _, c := range batch.Clients {
		if out.ClientByCode(c.Code) >= 0 {
			report.ClientsSkipped++
			continue
		}
		if c.ID == "" {
			c.ID = s.tracker.NewID()
		}
		out.Clients = append(out.Clients, c)
		report.ClientsAdded++
	}

	if len(batch.Items) > 0 {
		next := ws.Invoice.Clone()
		for _, in := range batch.Items {
			next.Items = append(next.Items, s.ItemFromInput(in))
		}
		out.Invoice = s.EditWithNotes(ws.Invoice, next, "import")
		report.ItemsAdded = len(batch.Items)
	}

	taken := map[string]bool{ws.Invoice.Number: true}
	for _, inv := range ws.Invoices {
		taken[inv.Number] = true
	}
	for _, in := range batch.Invoices {
		if taken[in.Number] {
			report.InvoicesSkipped++
			continue
		}
		taken[in.Number] = true
		out.Invoices = append(out.Invoices, s.InvoiceFromInput(in))
		report.InvoicesAdded++
	}

	s.log.WithFields(logrus.Fields{
		"clients":  report.ClientsAdded,
		"items":    report.ItemsAdded,
		"invoices": report.InvoicesAdded,
		"warnings": len(report.Warnings),
	}).Info("import applied")
	return out, report
}
