// Package view renders the printable delivery note.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/bon-livraison/internal/i18n"
	"github.com/diewo77/bon-livraison/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templatesFS embed.FS

// MinRows is the number of item rows printed; shorter notes get blank rows.
const MinRows = 10

var (
	tplOnce sync.Once
	tpl     *template.Template
	tplErr  error
)

// Funcs returns the template helpers for lang.
func Funcs(lang string) template.FuncMap {
	p := Printer(lang)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		"money": func(v float64) string {
			return FormatMoney(p, v)
		},
		"qty": func(v float64) string {
			return p.Sprintf("%v", number.Decimal(finite(v)))
		},
		"date": FormatDate,
		"status": func(s models.InvoiceStatus) string {
			return i18n.T(lang, "status."+string(s))
		},
	}
}

// Printer returns the number printer for lang.
func Printer(lang string) *message.Printer {
	if lang == "en" {
		return message.NewPrinter(language.English)
	}
	return message.NewPrinter(language.French)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatMoney prints v with two decimals and the grouping of p's language.
func FormatMoney(p *message.Printer, v float64) string {
	return p.Sprintf("%v", number.Decimal(finite(v), number.Scale(2)))
}

// FormatDate turns an ISO date (or timestamp) into dd/mm/yyyy. Other input
// is returned unchanged.
func FormatDate(s string) string {
	if len(s) >= 10 {
		if d, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return d.Format("02/01/2006")
		}
	}
	return s
}

func load() (*template.Template, error) {
	tplOnce.Do(func() {
		// helpers are rebound per render through Funcs(lang)
		tpl, tplErr = template.New("delivery_note.html").Funcs(Funcs(i18n.DefaultLang)).ParseFS(templatesFS, "templates/delivery_note.html")
	})
	return tpl, tplErr
}

type noteData struct {
	Invoice    models.Invoice
	Company    models.CompanyInfo
	Theme      string
	FontSize   int
	ShowStatus bool
	Filler     []struct{}
}

// RenderDeliveryNote writes the HTML delivery note of inv issued by company,
// with labels and number formatting in lang ("fr" or "en").
func RenderDeliveryNote(w io.Writer, inv models.Invoice, company models.CompanyInfo, lang string) error {
	base, err := load()
	if err != nil {
		return fmt.Errorf("parse delivery note template: %w", err)
	}
	if lang == "" {
		lang = i18n.DefaultLang
	}
	t, err := base.Clone()
	if err != nil {
		return err
	}
	t.Funcs(Funcs(strings.ToLower(lang)))

	data := noteData{
		Invoice:    inv,
		Company:    company,
		Theme:      company.Theme(),
		FontSize:   company.FontSize,
		ShowStatus: inv.Status != "" && !inv.IsDraft(),
	}
	if data.FontSize <= 0 {
		data.FontSize = 14
	}
	if n := MinRows - len(inv.Items); n > 0 {
		data.Filler = make([]struct{}, n)
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("render delivery note %s: %w", inv.Number, err)
	}
	return nil
}
