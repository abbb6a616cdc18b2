package models

// ItemInput is an imported line: an InvoiceItem without id or amount.
// The amount is always recomputed, never imported.
type ItemInput struct {
	Reference   string  `json:"reference" validate:"required"`
	Designation string  `json:"designation" validate:"required"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	TvaRate     float64 `json:"tvaRate"`
	Discount    float64 `json:"discount"`
}

// InvoiceInput is a partial invoice record coming from an import.
type InvoiceInput struct {
	Number    string        `json:"number" validate:"required"`
	Date      string        `json:"date" validate:"required"`
	DueDate   string        `json:"dueDate,omitempty"`
	Reference string        `json:"reference,omitempty"`
	Vendor    string        `json:"vendor,omitempty"`
	Client    *ClientInfo   `json:"client,omitempty"`
	Status    InvoiceStatus `json:"status,omitempty"`
	Currency  string        `json:"currency,omitempty"`
	TvaMode   TvaMode       `json:"tvaMode,omitempty"`
	Advance   float64       `json:"advance,omitempty"`
	Items     []ItemInput   `json:"items,omitempty"`
}

// ImportBatch is the typed result of parsing an import file. Only records
// that passed their required-field checks are kept; Warnings describes the
// dropped ones.
type ImportBatch struct {
	Clients  []ClientInfo   `json:"clients,omitempty"`
	Items    []ItemInput    `json:"items,omitempty"`
	Invoices []InvoiceInput `json:"invoices,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Empty reports whether the batch carries no accepted record.
func (b ImportBatch) Empty() bool {
	return len(b.Clients) == 0 && len(b.Items) == 0 && len(b.Invoices) == 0
}
