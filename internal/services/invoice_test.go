package services

import (
	"errors"
	"testing"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoice(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s)

	assert.Equal(t, 1, inv.Version)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, models.DefaultCurrency, inv.Currency)
	assert.Equal(t, models.TvaModeExclusive, inv.TvaMode)
	assert.Equal(t, 4150.0, inv.Subtotal)
	assert.Equal(t, 830.0, inv.TotalTva)
	assert.Equal(t, 4980.0, inv.TotalTtc)
	assert.Equal(t, 4980.0, inv.NetToPay)
	require.Len(t, inv.History, 1)
	assert.Equal(t, models.ActionCreated, inv.History[0].Action)
	assert.Equal(t, 1, inv.History[0].Version)
	for _, it := range inv.Items {
		assert.NotEmpty(t, it.ID)
	}
}

func TestEdit_RecordsBusinessDeltaOnly(t *testing.T) {
	s := newTestService(t)
	cur := sampleInvoice(s)

	next := cur.Clone()
	next.Vendor = "B"
	next.Subtotal = 999999 // caller-supplied totals are overwritten
	next.NetToPay = -1

	out := s.Edit(cur, next)
	assert.Equal(t, 2, out.Version)
	assert.Equal(t, 4150.0, out.Subtotal)
	assert.Equal(t, 4980.0, out.NetToPay)
	require.Len(t, out.History, 2)
	last := out.History[1]
	assert.Equal(t, models.ActionEdited, last.Action)
	assert.Equal(t, models.ChangeSet{"vendor": {Old: "A", New: "B"}}, last.Changes)
}

func TestEdit_IgnoresCallerHistoryAndVersion(t *testing.T) {
	s := newTestService(t)
	cur := sampleInvoice(s)

	next := cur.Clone()
	next.Version = 42
	next.History = nil
	next.ID = "other"
	next.Reference = "changed"

	out := s.Edit(cur, next)
	assert.Equal(t, cur.ID, out.ID)
	assert.Equal(t, 2, out.Version)
	assert.Len(t, out.History, 2)
	assert.Equal(t, cur.History[0].ID, out.History[0].ID)
}

func TestEdit_ItemChangeRecomputesTotals(t *testing.T) {
	s := newTestService(t)
	cur := sampleInvoice(s)
	next := cur.Clone()
	next.Items[1].Quantity = 100 // 440

	out := s.Edit(cur, next)
	assert.Equal(t, 440.0, out.Items[1].Amount)
	assert.Equal(t, 3710.0, out.Subtotal)
	assert.Equal(t, 400.0, out.TotalQuantity)
	assert.Equal(t, models.Change{Old: "2 items", New: "2 items"}, out.History[1].Changes["items"])
}

func TestRestoreVersion(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s) // v1 advance 0

	steps := []func(models.Invoice) models.Invoice{
		func(i models.Invoice) models.Invoice { i.Advance = 100; return i }, // v2
		func(i models.Invoice) models.Invoice { i.Advance = 250; return i }, // v3
		func(i models.Invoice) models.Invoice { i.Vendor = "B"; return i },  // v4
		func(i models.Invoice) models.Invoice { i.Advance = 400; return i }, // v5
	}
	for _, step := range steps {
		inv = s.Edit(inv, step(inv.Clone()))
	}
	require.Equal(t, 5, inv.Version)
	historyLen := len(inv.History)

	out, err := s.RestoreVersion(inv, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, out.Version)
	assert.Equal(t, 250.0, out.Advance)
	assert.Equal(t, "A", out.Vendor)
	assert.Equal(t, 4980.0-250.0, out.NetToPay)
	require.Len(t, out.History, historyLen+1)

	last := out.History[len(out.History)-1]
	assert.Equal(t, models.ActionEdited, last.Action)
	assert.Equal(t, models.Change{Old: 400.0, New: 250.0}, last.Changes["advance"])
	assert.Equal(t, "restored from version 3", last.Notes)

	// the restored version is itself restorable
	back, err := s.RestoreVersion(out, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, back.Version)
	assert.Equal(t, 400.0, back.Advance)
}

func TestRestoreVersion_Unknown(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s)
	out, err := s.RestoreVersion(inv, 9)
	assert.True(t, errors.Is(err, ErrVersionNotFound))
	assert.Equal(t, inv.Version, out.Version)
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		status models.InvoiceStatus
		action models.Action
	}{
		{models.InvoiceStatusValidated, models.ActionValidated},
		{models.InvoiceStatusSent, models.ActionSent},
		{models.InvoiceStatusPaid, models.ActionPaid},
		{models.InvoiceStatusCanceled, models.ActionCanceled},
		{models.InvoiceStatusOverdue, models.ActionEdited},
		{models.InvoiceStatusPartiallyPaid, models.ActionEdited},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			s := newTestService(t)
			out, err := s.SetStatus(sampleInvoice(s), tt.status, "")
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.action, out.History[len(out.History)-1].Action)
		})
	}
}

func TestSetStatus_NoTransitionGuard(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s)
	inv, err := s.SetStatus(inv, models.InvoiceStatusPaid, "")
	require.NoError(t, err)
	inv, err = s.SetStatus(inv, models.InvoiceStatusDraft, "reopened")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 3, inv.Version)
	assert.Equal(t, models.Change{Old: "paid", New: "draft"}, inv.History[2].Changes["status"])
}

func TestSetStatus_Unknown(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s)
	_, err := s.SetStatus(inv, "archived", "")
	assert.True(t, errors.Is(err, ErrUnknownStatus))
}

func TestItems_AddUpdateRemove(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s)

	inv = s.AddItem(inv, models.InvoiceItem{Reference: "DVS1920", Designation: "SCOTCH", Quantity: 40, UnitPrice: 4.8, TvaRate: 20, Unit: "U"})
	require.Len(t, inv.Items, 3)
	added := inv.Items[2]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, 192.0, added.Amount)
	assert.Equal(t, 4342.0, inv.Subtotal)

	added.Quantity = 10
	inv, err := s.UpdateItem(inv, added)
	require.NoError(t, err)
	assert.Equal(t, 48.0, inv.Items[2].Amount)

	inv, err = s.RemoveItem(inv, added.ID)
	require.NoError(t, err)
	assert.Len(t, inv.Items, 2)
	assert.Equal(t, 4150.0, inv.Subtotal)
	assert.Equal(t, 4, inv.Version)

	_, err = s.RemoveItem(inv, "missing")
	assert.True(t, errors.Is(err, ErrItemNotFound))
	_, err = s.UpdateItem(inv, models.InvoiceItem{ID: "missing"})
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestRemoveItem_DoesNotAliasInput(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s)
	firstID := inv.Items[0].ID
	secondID := inv.Items[1].ID

	_, err := s.RemoveItem(inv, firstID)
	require.NoError(t, err)
	assert.Equal(t, firstID, inv.Items[0].ID)
	assert.Equal(t, secondID, inv.Items[1].ID)
}

func TestRecordPayment(t *testing.T) {
	s := newTestService(t)
	inv := sampleInvoice(s) // 4980 to pay

	inv = s.RecordPayment(inv, models.Payment{Amount: 1000, Method: models.PaymentMethodCheque, Reference: "CHQ-1"})
	assert.Equal(t, 1000.0, inv.Advance)
	assert.Equal(t, 3980.0, inv.NetToPay)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, inv.Status)
	require.Len(t, inv.Payments, 1)
	assert.NotEmpty(t, inv.Payments[0].Date)
	last := inv.History[len(inv.History)-1]
	assert.Equal(t, models.ActionPaid, last.Action)
	assert.Equal(t, models.Change{Old: 0.0, New: 1000.0}, last.Changes["advance"])

	inv = s.RecordPayment(inv, models.Payment{Amount: 3980})
	assert.Equal(t, 0.0, inv.NetToPay)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, models.PaymentMethodOther, inv.Payments[1].Method)
	assert.Equal(t, 3, inv.Version)
}

func TestDuplicate(t *testing.T) {
	s := newTestService(t)
	src := sampleInvoice(s)
	src, _ = s.SetStatus(src, models.InvoiceStatusSent, "")
	before := src.Clone()

	dup := s.Duplicate(src, "")
	assert.Equal(t, before, src)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Equal(t, "BLH2504637-DUP", dup.Number)
	assert.Equal(t, 1, dup.Version)
	assert.Equal(t, models.InvoiceStatusDraft, dup.Status)
	require.Len(t, dup.History, 1)
	assert.Equal(t, models.ActionDuplicated, dup.History[0].Action)
	assert.Equal(t, src.Subtotal, dup.Subtotal)
	for i := range dup.Items {
		assert.NotEqual(t, src.Items[i].ID, dup.Items[i].ID)
	}
}

func TestApplyImport(t *testing.T) {
	s := newTestService(t)
	ws := models.Workspace{
		Invoice: sampleInvoice(s),
		Clients: []models.ClientInfo{{ID: "c1", Code: "CL02169", Name: "STI THERMIQUE"}},
	}
	batch := models.ImportBatch{
		Clients: []models.ClientInfo{
			{Code: "CL02169", Name: "duplicate"},
			{Code: "CL9", Name: "NEW CLIENT"},
		},
		Items: []models.ItemInput{
			{Reference: "R1", Designation: "D1", Quantity: 2, Unit: "U", UnitPrice: 10, TvaRate: 20},
			{Reference: "R2", Designation: "D2", Quantity: 1, Unit: "U", UnitPrice: 5, TvaRate: 20},
		},
		Invoices: []models.InvoiceInput{
			{Number: "BLH2504637", Date: "2025-01-01"},
			{Number: "BLH1", Date: "2025-02-01", Status: models.InvoiceStatusSent},
		},
		Warnings: []string{"1 clients ignored"},
	}

	out, report := s.ApplyImport(ws, batch)

	assert.Equal(t, ImportReport{
		ClientsAdded:    1,
		ClientsSkipped:  1,
		ItemsAdded:      2,
		InvoicesAdded:   1,
		InvoicesSkipped: 1,
		Warnings:        []string{"1 clients ignored"},
	}, report)

	require.Len(t, out.Clients, 2)
	assert.NotEmpty(t, out.Clients[1].ID)
	assert.Len(t, ws.Clients, 1, "input workspace untouched")

	require.Len(t, out.Invoice.Items, 4)
	assert.Equal(t, 20.0, out.Invoice.Items[2].Amount)
	assert.Equal(t, 4175.0, out.Invoice.Subtotal)
	assert.Equal(t, 2, out.Invoice.Version, "one entry for the whole batch")
	assert.Equal(t, models.Change{Old: "2 items", New: "4 items"}, out.Invoice.History[1].Changes["items"])

	require.Len(t, out.Invoices, 1)
	imported := out.Invoices[0]
	assert.Equal(t, "BLH1", imported.Number)
	assert.Equal(t, models.InvoiceStatusSent, imported.Status)
	assert.Equal(t, 1, imported.Version)
	assert.Equal(t, models.DefaultCurrency, imported.Currency)
}
