// Package i18n holds the French and English message catalogues used by the
// import warnings, validation messages and the printed delivery note.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLang is used when nothing better can be detected.
const DefaultLang = "fr"

var catalog = map[string]map[string]string{
	"fr": {
		"required":         "Requis",
		"out_of_range":     "Hors limites",
		"must_be_positive": "Doit être positif",
		"invalid":          "Invalide",

		"import.clients_ignored":  "%d clients ignorés (nom ou code manquant)",
		"import.items_ignored":    "%d articles ignorés (référence ou désignation manquante)",
		"import.invoices_ignored": "%d factures ignorées (numéro ou date manquant)",
		"import.empty_file":       "Fichier CSV vide",
		"import.parse_error":      "Erreur lors de l'analyse du fichier",
		"import.unknown_columns":  "Colonnes non reconnues, rien à importer",

		"print.title":       "BON DE LIVRAISON",
		"print.number":      "N°",
		"print.date":        "Date",
		"print.reference":   "Référence",
		"print.vendor":      "Vendeur",
		"print.client":      "Client",
		"print.code":        "Code client",
		"print.chantier":    "Chantier",
		"print.mode":        "Mode",
		"print.designation": "Désignation",
		"print.quantity":    "Qté",
		"print.unit":        "Unité",
		"print.unit_price":  "P.U. HT",
		"print.amount":      "Montant HT",
		"print.subtotal":    "Total HT",
		"print.tva":         "TVA",
		"print.total_ttc":   "Total TTC",
		"print.advance":     "Avance",
		"print.net_to_pay":  "Net à payer",
		"print.total_qty":   "Quantité totale",
		"print.phone":       "Tél",
		"print.fax":         "Fax",
		"print.signature":   "Signature client",
		"print.status":      "Statut",

		"status.draft":          "Brouillon",
		"status.validated":      "Validée",
		"status.sent":           "Envoyée",
		"status.partially_paid": "Partiellement payée",
		"status.paid":           "Payée",
		"status.overdue":        "En retard",
		"status.canceled":       "Annulée",
	},
	"en": {
		"required":         "Required",
		"out_of_range":     "Out of range",
		"must_be_positive": "Must be positive",
		"invalid":          "Invalid",

		"import.clients_ignored":  "%d clients ignored (missing name or code)",
		"import.items_ignored":    "%d items ignored (missing reference or designation)",
		"import.invoices_ignored": "%d invoices ignored (missing number or date)",
		"import.empty_file":       "Empty CSV file",
		"import.parse_error":      "Could not parse the file",
		"import.unknown_columns":  "Unrecognised columns, nothing to import",

		"print.title":       "DELIVERY NOTE",
		"print.number":      "No.",
		"print.date":        "Date",
		"print.reference":   "Reference",
		"print.vendor":      "Vendor",
		"print.client":      "Client",
		"print.code":        "Client code",
		"print.chantier":    "Site",
		"print.mode":        "Mode",
		"print.designation": "Designation",
		"print.quantity":    "Qty",
		"print.unit":        "Unit",
		"print.unit_price":  "Unit price",
		"print.amount":      "Amount",
		"print.subtotal":    "Subtotal",
		"print.tva":         "VAT",
		"print.total_ttc":   "Total incl. VAT",
		"print.advance":     "Advance",
		"print.net_to_pay":  "Net to pay",
		"print.total_qty":   "Total quantity",
		"print.phone":       "Phone",
		"print.fax":         "Fax",
		"print.signature":   "Client signature",
		"print.status":      "Status",

		"status.draft":          "Draft",
		"status.validated":      "Validated",
		"status.sent":           "Sent",
		"status.partially_paid": "Partially paid",
		"status.paid":           "Paid",
		"status.overdue":        "Overdue",
		"status.canceled":       "Canceled",
	},
}

var matcher = language.NewMatcher([]language.Tag{language.French, language.English})

// DetectLanguage picks a supported language from an Accept-Language style
// value or a locale such as "en_US.UTF-8". Unknown input yields "fr".
func DetectLanguage(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return DefaultLang
	}
	if i := strings.IndexAny(accept, ".@"); i > 0 && !strings.Contains(accept, ",") {
		accept = accept[:i]
	}
	accept = strings.ReplaceAll(accept, "_", "-")
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLang
	}
	if idx == 1 {
		return "en"
	}
	return "fr"
}

// T returns the message for code in lang, falling back to French and then to
// the code itself.
func T(lang, code string) string {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalog[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Tf formats the message for code with args.
func Tf(lang, code string, args ...any) string {
	return fmt.Sprintf(T(lang, code), args...)
}
