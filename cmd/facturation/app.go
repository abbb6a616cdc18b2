package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/diewo77/bon-livraison/internal/db"
	"github.com/diewo77/bon-livraison/internal/exporter"
	"github.com/diewo77/bon-livraison/internal/importer"
	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/diewo77/bon-livraison/internal/services"
	"github.com/diewo77/bon-livraison/internal/validation"
	"github.com/diewo77/bon-livraison/internal/view"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownCommand = errors.New("unknown_command")
	ErrUsage          = errors.New("usage")
	ErrNoInvoice      = errors.New("no_invoice")
)

const usage = `usage: facturation <command> [arguments]

commands:
  show [-json]                      print the current delivery note
  set key=value...                  edit header, client.<field> or client=<code>
  add-item -ref R -designation D [-qty N -unit U -price P -tva T -discount D]
  update-item <id> [same flags as add-item]
  remove-item <id>
  status <status> [-notes text]
  pay -amount A [-method M -ref R -date YYYY-MM-DD]
  history                           list history entries
  restore <version>                 copy a past version forward
  duplicate [-number N]             archive the note and start a copy
  import <file.csv|file.json>
  export [-format csv|xlsx|json] [-out file]
  backup [-out file]
  print [-lang fr|en] [-out file]
  migrate                           create or update the schema
  seed                              install default data`

// App runs the command line subcommands against the store.
type App struct {
	store    *db.Store
	svc      *services.InvoiceService
	importer *importer.Importer
	log      *logrus.Logger
	lang     string
	out      io.Writer
	now      func() time.Time

	// set by main for the schema commands
	prepare func() error
}

// NewApp creates the application bound to store.
func NewApp(store *db.Store, svc *services.InvoiceService, log *logrus.Logger, lang string, out io.Writer) *App {
	return &App{
		store:    store,
		svc:      svc,
		importer: importer.New(lang),
		log:      log,
		lang:     lang,
		out:      out,
		now:      time.Now,
	}
}

// Run executes the subcommand named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "show":
		return a.show(ctx, rest)
	case "set":
		return a.set(ctx, rest)
	case "add-item":
		return a.addItem(ctx, rest)
	case "update-item":
		return a.updateItem(ctx, rest)
	case "remove-item":
		return a.removeItem(ctx, rest)
	case "status":
		return a.status(ctx, rest)
	case "pay":
		return a.pay(ctx, rest)
	case "history":
		return a.history(ctx)
	case "restore":
		return a.restore(ctx, rest)
	case "duplicate":
		return a.duplicate(ctx, rest)
	case "import":
		return a.importFile(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "backup":
		return a.backup(ctx, rest)
	case "print":
		return a.print(ctx, rest)
	case "migrate":
		return a.migrate()
	case "seed":
		return db.Seed(ctx, a.store, a.svc)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func (a *App) migrate() error {
	if a.prepare == nil {
		return errors.New("migrations are not configured")
	}
	if err := a.prepare(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "migrations completed")
	return nil
}

// mutate loads the workspace, applies fn and saves it back, failing if the
// invoice was changed by someone else in between.
func (a *App) mutate(ctx context.Context, fn func(ws *models.Workspace) error) error {
	ws, err := a.store.LoadWorkspace(ctx)
	if err != nil {
		return err
	}
	if ws.Invoice.ID == "" {
		return fmt.Errorf("%w: run the seed command first", ErrNoInvoice)
	}
	expected := ws.Invoice.Version
	if err := fn(&ws); err != nil {
		return err
	}
	return a.store.SaveWorkspace(ctx, ws, expected)
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) show(ctx context.Context, args []string) error {
	fs := a.flags("show")
	asJSON := fs.Bool("json", false, "print the invoice as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inv, err := a.store.LoadInvoice(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return exporter.WriteJSON(a.out, inv)
	}

	p := view.Printer(a.lang)
	money := func(v float64) string { return view.FormatMoney(p, v) }
	fmt.Fprintf(a.out, "%s  %s  v%d  [%s]\n", inv.Number, view.FormatDate(inv.Date), inv.Version, inv.Status)
	fmt.Fprintf(a.out, "client: %s (%s)  vendor: %s  ref: %s\n", inv.Client.Name, inv.Client.Code, inv.Vendor, inv.Reference)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREF\tDESIGNATION\tQTY\tUNIT\tPU HT\tTVA%\tMONTANT HT")
	for _, it := range inv.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\t%g\t%s\n",
			it.ID, it.Reference, it.Designation, it.Quantity, it.Unit, money(it.UnitPrice), it.TvaRate, money(it.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "total HT %s | TVA %s | TTC %s | avance %s | net à payer %s %s | qté %g\n",
		money(inv.Subtotal), money(inv.TotalTva), money(inv.TotalTtc), money(inv.Advance), money(inv.NetToPay), inv.Currency, inv.TotalQuantity)
	return nil
}

func (a *App) set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: set key=value...", ErrUsage)
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		next := ws.Invoice.Clone()
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("%w: expected key=value, got %q", ErrUsage, arg)
			}
			if err := applyField(ws, &next, strings.TrimSpace(key), value); err != nil {
				return err
			}
		}
		ws.Invoice = a.svc.Edit(ws.Invoice, next)
		return nil
	})
}

// applyField sets one editable invoice field from text.
func applyField(ws *models.Workspace, inv *models.Invoice, key, value string) error {
	num := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	}
	switch key {
	case "number":
		inv.Number = value
	case "date":
		inv.Date = value
	case "dueDate":
		inv.DueDate = value
	case "reference":
		inv.Reference = value
	case "vendor":
		inv.Vendor = value
	case "currency":
		inv.Currency = value
	case "notes":
		inv.Notes = value
	case "advance":
		f, err := num()
		if err != nil {
			return err
		}
		inv.Advance = f
	case "globalDiscount":
		f, err := num()
		if err != nil {
			return err
		}
		inv.GlobalDiscount = f
	case "tvaMode":
		mode := models.TvaMode(value)
		if mode != models.TvaModeExclusive && mode != models.TvaModeInclusive {
			return fmt.Errorf("tvaMode: unknown mode %q", value)
		}
		inv.TvaMode = mode
	case "client":
		idx := ws.ClientByCode(value)
		if idx < 0 {
			return fmt.Errorf("client %q is not in the client book", value)
		}
		inv.Client = ws.Clients[idx]
	default:
		field, ok := strings.CutPrefix(key, "client.")
		if !ok || field == "id" || !inv.Client.Set(field, value) {
			return fmt.Errorf("%w: unknown field %q", ErrUsage, key)
		}
	}
	return nil
}

type itemFlags struct {
	fs                    *flag.FlagSet
	ref, desig, unit      *string
	qty, price, tva, disc *float64
}

func (a *App) newItemFlags(name string) *itemFlags {
	fs := a.flags(name)
	return &itemFlags{
		fs:    fs,
		ref:   fs.String("ref", "", "item reference"),
		desig: fs.String("designation", "", "item designation"),
		unit:  fs.String("unit", "U", "unit"),
		qty:   fs.Float64("qty", 1, "quantity"),
		price: fs.Float64("price", 0, "unit price"),
		tva:   fs.Float64("tva", 20, "VAT rate in percent"),
		disc:  fs.Float64("discount", 0, "line discount in percent"),
	}
}

// apply copies the flags given on the command line onto it.
func (f *itemFlags) apply(it *models.InvoiceItem) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "ref":
			it.Reference = *f.ref
		case "designation":
			it.Designation = *f.desig
		case "unit":
			it.Unit = *f.unit
		case "qty":
			it.Quantity = *f.qty
		case "price":
			it.UnitPrice = *f.price
		case "tva":
			it.TvaRate = *f.tva
		case "discount":
			it.Discount = *f.disc
		}
	})
}

func (a *App) addItem(ctx context.Context, args []string) error {
	f := a.newItemFlags("add-item")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	in := models.ItemInput{
		Reference:   *f.ref,
		Designation: *f.desig,
		Quantity:    *f.qty,
		Unit:        *f.unit,
		UnitPrice:   *f.price,
		TvaRate:     *f.tva,
		Discount:    *f.disc,
	}
	if v, err := validation.Struct(in); err != nil {
		return err
	} else if !v.Empty() {
		return fmt.Errorf("%w: %v", ErrUsage, v.Messages(a.lang))
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		ws.Invoice = a.svc.AddItem(ws.Invoice, a.svc.ItemFromInput(in))
		return nil
	})
}

func (a *App) updateItem(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: update-item <id> [flags]", ErrUsage)
	}
	id := args[0]
	f := a.newItemFlags("update-item")
	if err := f.fs.Parse(args[1:]); err != nil {
		return err
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		idx := ws.Invoice.ItemByID(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", services.ErrItemNotFound, id)
		}
		it := ws.Invoice.Items[idx]
		f.apply(&it)
		inv, err := a.svc.UpdateItem(ws.Invoice, it)
		ws.Invoice = inv
		return err
	})
}

func (a *App) removeItem(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove-item <id>", ErrUsage)
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		inv, err := a.svc.RemoveItem(ws.Invoice, args[0])
		ws.Invoice = inv
		return err
	})
}

func (a *App) status(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: status <status> [-notes text]", ErrUsage)
	}
	status := models.InvoiceStatus(args[0])
	fs := a.flags("status")
	notes := fs.String("notes", "", "note recorded with the change")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		inv, err := a.svc.SetStatus(ws.Invoice, status, *notes)
		ws.Invoice = inv
		return err
	})
}

func (a *App) pay(ctx context.Context, args []string) error {
	fs := a.flags("pay")
	amount := fs.Float64("amount", 0, "amount paid")
	method := fs.String("method", "", "Virement, Espèces, Chèque, Carte or Autre")
	ref := fs.String("ref", "", "payment reference")
	date := fs.String("date", "", "payment date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v := validation.Violations{}
	validation.PositiveFloat("amount", *amount, v)
	if !v.Empty() {
		return fmt.Errorf("%w: %v", ErrUsage, v.Messages(a.lang))
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		ws.Invoice = a.svc.RecordPayment(ws.Invoice, models.Payment{
			Date:      *date,
			Amount:    *amount,
			Method:    models.ParsePaymentMethod(*method),
			Reference: *ref,
		})
		return nil
	})
}

func (a *App) history(ctx context.Context) error {
	inv, err := a.store.LoadInvoice(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tTIMESTAMP\tUSER\tACTION\tCHANGES\tNOTES")
	for _, e := range inv.History {
		keys := e.Changes.Keys()
		sort.Strings(keys)
		changes := make([]string, 0, len(keys))
		for _, k := range keys {
			c := e.Changes[k]
			changes = append(changes, fmt.Sprintf("%s: %v → %v", k, c.Old, c.New))
		}
		version := "-"
		if e.Version > 0 {
			version = strconv.Itoa(e.Version)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", version, e.Timestamp, e.User, e.Action, strings.Join(changes, "; "), e.Notes)
	}
	return tw.Flush()
}

func (a *App) restore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: restore <version>", ErrUsage)
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: version must be a number", ErrUsage)
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		inv, err := a.svc.RestoreVersion(ws.Invoice, version)
		ws.Invoice = inv
		return err
	})
}

func (a *App) duplicate(ctx context.Context, args []string) error {
	fs := a.flags("duplicate")
	number := fs.String("number", "", "number of the copy (default <number>-DUP)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		archive(ws, ws.Invoice)
		ws.Invoice = a.svc.Duplicate(ws.Invoice, *number)
		fmt.Fprintf(a.out, "duplicated %s as %s\n", ws.Invoices[len(ws.Invoices)-1].Number, ws.Invoice.Number)
		return nil
	})
}

// archive stores inv in the invoice list, replacing an older copy.
func archive(ws *models.Workspace, inv models.Invoice) {
	for i := range ws.Invoices {
		if ws.Invoices[i].ID == inv.ID {
			ws.Invoices = append(ws.Invoices[:i:i], ws.Invoices[i+1:]...)
			break
		}
	}
	ws.Invoices = append(ws.Invoices, inv)
}

func (a *App) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: import <file>", ErrUsage)
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if strings.EqualFold(filepath.Ext(args[0]), ".json") {
		if _, err := exporter.ReadBackup(bytes.NewReader(raw)); errors.Is(err, exporter.ErrChecksumMismatch) {
			return err
		}
	}
	batch, err := a.importer.Parse(args[0], bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return a.mutate(ctx, func(ws *models.Workspace) error {
		out, report := a.svc.ApplyImport(*ws, batch)
		*ws = out
		fmt.Fprintf(a.out, "clients: %d added, %d skipped | items: %d added | invoices: %d added, %d skipped\n",
			report.ClientsAdded, report.ClientsSkipped, report.ItemsAdded, report.InvoicesAdded, report.InvoicesSkipped)
		for _, w := range report.Warnings {
			fmt.Fprintln(a.out, "warning:", w)
		}
		return nil
	})
}

// allInvoices returns the archive followed by the current note.
func allInvoices(ws models.Workspace) []models.Invoice {
	out := make([]models.Invoice, 0, len(ws.Invoices)+1)
	out = append(out, ws.Invoices...)
	if ws.Invoice.ID != "" {
		out = append(out, ws.Invoice)
	}
	return out
}

// output opens path for writing, or returns the app output for "" and "-".
func (a *App) output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func (a *App) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	format := fs.String("format", "csv", "csv, xlsx or json")
	outPath := fs.String("out", "", "output file (default invoices_<date>.<format>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ws, err := a.store.LoadWorkspace(ctx)
	if err != nil {
		return err
	}
	invoices := allInvoices(ws)

	path := *outPath
	if path == "" {
		path = exporter.FileName("invoices", *format, a.now())
	}
	w, closeFn, err := a.output(path)
	if err != nil {
		return err
	}
	switch *format {
	case "csv":
		err = exporter.WriteCSV(w, invoices)
	case "xlsx":
		err = exporter.WriteXLSX(w, invoices)
	case "json":
		err = exporter.WriteJSON(w, invoices)
	default:
		err = fmt.Errorf("%w: %s", importer.ErrUnknownFormat, *format)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"format": *format, "invoices": len(invoices), "file": path}).Info("export written")
	return nil
}

func (a *App) backup(ctx context.Context, args []string) error {
	fs := a.flags("backup")
	outPath := fs.String("out", "", "output file (default backup_<date>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ws, err := a.store.LoadWorkspace(ctx)
	if err != nil {
		return err
	}
	b, err := exporter.NewBackup(allInvoices(ws), ws.Clients, a.now())
	if err != nil {
		return err
	}
	path := *outPath
	if path == "" {
		path = exporter.FileName("backup", "json", a.now())
	}
	w, closeFn, err := a.output(path)
	if err != nil {
		return err
	}
	err = exporter.WriteBackup(w, b)
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"checksum": b.Checksum, "file": path}).Info("backup written")
	return nil
}

func (a *App) print(ctx context.Context, args []string) error {
	fs := a.flags("print")
	lang := fs.String("lang", a.lang, "fr or en")
	outPath := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ws, err := a.store.LoadWorkspace(ctx)
	if err != nil {
		return err
	}
	w, closeFn, err := a.output(*outPath)
	if err != nil {
		return err
	}
	err = view.RenderDeliveryNote(w, ws.Invoice, ws.Company, *lang)
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}
