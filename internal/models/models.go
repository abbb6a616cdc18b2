// Package models holds the value types of the delivery-note engine: the
// invoice aggregate, its items, client snapshot, payments and history.
package models

// Workspace is the whole persisted state of the application: the invoice
// being edited, the issuing company, the client book and archived invoices.
type Workspace struct {
	Invoice  Invoice      `json:"invoice"`
	Company  CompanyInfo  `json:"companyInfo"`
	Clients  []ClientInfo `json:"clients"`
	Invoices []Invoice    `json:"invoices"`
}

// ClientByCode returns the index of the client with the given code, or -1.
func (w *Workspace) ClientByCode(code string) int {
	for i, c := range w.Clients {
		if c.Code == code {
			return i
		}
	}
	return -1
}
