package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/bon-livraison/internal/db"
	"github.com/diewo77/bon-livraison/internal/exporter"
	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/diewo77/bon-livraison/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	*App
	buf   *bytes.Buffer
	store *db.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(d))

	log := logrus.New()
	log.SetOutput(io.Discard)
	tr := services.NewTracker("tester", log)
	clock := time.Date(2025, 1, 18, 9, 0, 0, 0, time.UTC)
	tr.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	svc := services.NewInvoiceService(tr, log)
	store := db.NewStore(d, log)
	require.NoError(t, db.Seed(context.Background(), store, svc))

	buf := &bytes.Buffer{}
	app := NewApp(store, svc, log, "en", buf)
	app.now = func() time.Time { return clock }
	app.prepare = func() error { return db.Migrate(d) }
	return &testApp{App: app, buf: buf, store: store}
}

func (a *testApp) run(t *testing.T, args ...string) string {
	t.Helper()
	a.buf.Reset()
	require.NoError(t, a.Run(context.Background(), args))
	return a.buf.String()
}

func (a *testApp) invoice(t *testing.T) models.Invoice {
	t.Helper()
	inv, err := a.store.LoadInvoice(context.Background())
	require.NoError(t, err)
	return inv
}

func TestShow(t *testing.T) {
	a := newTestApp(t)
	out := a.run(t, "show")
	assert.Contains(t, out, "BLH2504637  18/01/2025  v1  [draft]")
	assert.Contains(t, out, "STI THERMIQUE")
	assert.Contains(t, out, "CABLE SV1V 5*1.5 ING-NEX")
	assert.Contains(t, out, "total HT 5,392.81")
	assert.Contains(t, out, "TTC 6,471.37")

	out = a.run(t, "show", "-json")
	assert.Contains(t, out, `"number": "BLH2504637"`)
}

func TestSet(t *testing.T) {
	a := newTestApp(t)
	a.run(t, "set", "vendor=B", "client.city=Marrakech", "advance=100")

	inv := a.invoice(t)
	assert.Equal(t, 2, inv.Version)
	assert.Equal(t, "B", inv.Vendor)
	assert.Equal(t, "Marrakech", inv.Client.City)
	assert.Equal(t, 6371.37, inv.NetToPay)
	last := inv.History[len(inv.History)-1]
	assert.ElementsMatch(t, []string{"vendor", "client.city", "advance"}, last.Changes.Keys())

	out := a.run(t, "history")
	assert.Contains(t, out, "vendor: LOUBNA → B")
}

func TestSet_Errors(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	assert.True(t, errors.Is(a.Run(ctx, []string{"set", "nope"}), ErrUsage))
	assert.True(t, errors.Is(a.Run(ctx, []string{"set", "client.id=x"}), ErrUsage))
	assert.Error(t, a.Run(ctx, []string{"set", "advance=abc"}))
	assert.Error(t, a.Run(ctx, []string{"set", "tvaMode=mixed"}))
	assert.Error(t, a.Run(ctx, []string{"set", "client=UNKNOWN"}))
	assert.Equal(t, 1, a.invoice(t).Version, "failed edits are not saved")
}

func TestItemCommands(t *testing.T) {
	a := newTestApp(t)
	a.run(t, "add-item", "-ref", "R1", "-designation", "PRISE", "-qty", "2", "-price", "10")
	inv := a.invoice(t)
	require.Len(t, inv.Items, 7)
	added := inv.Items[6]
	assert.Equal(t, 20.0, added.Amount)
	assert.Equal(t, "U", added.Unit)
	assert.Equal(t, 5412.81, inv.Subtotal)

	a.run(t, "update-item", added.ID, "-qty", "5")
	inv = a.invoice(t)
	assert.Equal(t, 50.0, inv.Items[6].Amount)
	assert.Equal(t, "PRISE", inv.Items[6].Designation)

	a.run(t, "remove-item", added.ID)
	inv = a.invoice(t)
	assert.Len(t, inv.Items, 6)
	assert.Equal(t, 4, inv.Version)

	err := a.Run(context.Background(), []string{"remove-item", "missing"})
	assert.True(t, errors.Is(err, services.ErrItemNotFound))
	err = a.Run(context.Background(), []string{"add-item", "-ref", "R2"})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestStatusAndPay(t *testing.T) {
	a := newTestApp(t)
	a.run(t, "status", "sent", "-notes", "par coursier")
	inv := a.invoice(t)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	assert.Equal(t, "par coursier", inv.History[len(inv.History)-1].Notes)

	a.run(t, "pay", "-amount", "1000", "-method", "cheque", "-ref", "CHQ-1")
	inv = a.invoice(t)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, inv.Status)
	assert.Equal(t, 5471.37, inv.NetToPay)
	require.Len(t, inv.Payments, 1)
	assert.Equal(t, models.PaymentMethodCheque, inv.Payments[0].Method)

	err := a.Run(context.Background(), []string{"status", "archived"})
	assert.True(t, errors.Is(err, services.ErrUnknownStatus))
	err = a.Run(context.Background(), []string{"pay", "-amount", "0"})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestRestore(t *testing.T) {
	a := newTestApp(t)
	a.run(t, "set", "advance=100") // v2
	a.run(t, "set", "advance=250") // v3
	a.run(t, "set", "advance=400") // v4
	a.run(t, "restore", "2")

	inv := a.invoice(t)
	assert.Equal(t, 5, inv.Version)
	assert.Equal(t, 100.0, inv.Advance)
	assert.Equal(t, "restored from version 2", inv.History[len(inv.History)-1].Notes)

	err := a.Run(context.Background(), []string{"restore", "99"})
	assert.True(t, errors.Is(err, services.ErrVersionNotFound))
}

func TestDuplicate(t *testing.T) {
	a := newTestApp(t)
	out := a.run(t, "duplicate")
	assert.Contains(t, out, "duplicated BLH2504637 as BLH2504637-DUP")

	ws, err := a.store.LoadWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BLH2504637-DUP", ws.Invoice.Number)
	assert.Equal(t, 1, ws.Invoice.Version)
	require.Len(t, ws.Invoices, 1)
	assert.Equal(t, "BLH2504637", ws.Invoices[0].Number)

	// the copy is editable from version 1
	a.run(t, "set", "vendor=X")
	assert.Equal(t, 2, a.invoice(t).Version)
}

func TestImportCSV(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	clients := filepath.Join(dir, "clients.csv")
	require.NoError(t, os.WriteFile(clients, []byte("Name,Code\nACME,CL1\n,CL2\nACME BIS,CL1\n"), 0o600))

	out := a.run(t, "import", clients)
	assert.Contains(t, out, "clients: 1 added, 1 skipped")
	assert.Contains(t, out, "warning: 1 clients ignored (missing name or code)")

	items := filepath.Join(dir, "items.csv")
	require.NoError(t, os.WriteFile(items, []byte("Reference,Designation,UnitPrice,Quantity\nR1,D1,10,2\n"), 0o600))
	a.run(t, "import", items)
	inv := a.invoice(t)
	assert.Len(t, inv.Items, 7)
	assert.Equal(t, 5412.81, inv.Subtotal)

	a.run(t, "set", "client=CL1")
	assert.Equal(t, "ACME", a.invoice(t).Client.Name)
}

func TestExportAndBackup(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	a.run(t, "export", "-format", "csv", "-out", csvPath)
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Number,Date,Client,Total HT,Total TTC,Status,Vendor\nBLH2504637,2025-01-18,STI THERMIQUE,5392.81,6471.37,draft,LOUBNA\n", string(raw))

	xlsxPath := filepath.Join(dir, "out.xlsx")
	a.run(t, "export", "-format", "xlsx", "-out", xlsxPath)
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	rows, err := f.GetRows(exporter.SheetName)
	require.NoError(t, err)
	f.Close()
	assert.Len(t, rows, 2)

	out := a.run(t, "export", "-format", "json", "-out", "-")
	assert.Contains(t, out, `"number": "BLH2504637"`)
	assert.Error(t, a.Run(context.Background(), []string{"export", "-format", "pdf", "-out", "-"}))

	backupPath := filepath.Join(dir, "backup.json")
	a.run(t, "backup", "-out", backupPath)
	bf, err := os.Open(backupPath)
	require.NoError(t, err)
	b, err := exporter.ReadBackup(bf)
	bf.Close()
	require.NoError(t, err)
	require.Len(t, b.Data.Invoices, 1)

	// a tampered backup is refused on import
	raw, err = os.ReadFile(backupPath)
	require.NoError(t, err)
	tampered := filepath.Join(dir, "tampered.json")
	require.NoError(t, os.WriteFile(tampered, bytes.Replace(raw, []byte("LOUBNA"), []byte("LOUBNB"), 1), 0o600))
	err = a.Run(context.Background(), []string{"import", tampered})
	assert.True(t, errors.Is(err, exporter.ErrChecksumMismatch))

	// an intact backup imports; its invoice number is already taken
	out = a.run(t, "import", backupPath)
	assert.Contains(t, out, "invoices: 0 added, 1 skipped")
}

func TestPrint(t *testing.T) {
	a := newTestApp(t)
	out := a.run(t, "print")
	assert.Contains(t, out, "DELIVERY NOTE")
	assert.Contains(t, out, "FATH AL MASSAR")

	path := filepath.Join(t.TempDir(), "note.html")
	a.run(t, "print", "-lang", "fr", "-out", path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "BON DE LIVRAISON")
}

func TestMigrateSeedAndUnknown(t *testing.T) {
	a := newTestApp(t)
	assert.Contains(t, a.run(t, "migrate"), "migrations completed")
	a.run(t, "seed")
	assert.Equal(t, 1, a.invoice(t).Version)

	err := a.Run(context.Background(), []string{"frobnicate"})
	assert.True(t, errors.Is(err, ErrUnknownCommand))
	assert.True(t, errors.Is(a.Run(context.Background(), nil), ErrUsage))
}

func TestMutate_Conflict(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	err := a.mutate(ctx, func(ws *models.Workspace) error {
		// another writer saves first
		other := ws.Invoice.Clone()
		other.Vendor = "OTHER"
		require.NoError(t, a.store.SaveInvoice(ctx, a.svc.Edit(ws.Invoice, other), ws.Invoice.Version))

		next := ws.Invoice.Clone()
		next.Vendor = "MINE"
		ws.Invoice = a.svc.Edit(ws.Invoice, next)
		return nil
	})
	assert.True(t, errors.Is(err, db.ErrVersionConflict))
	assert.Equal(t, "OTHER", a.invoice(t).Vendor)
}
