package models

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusValidated     InvoiceStatus = "validated"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCanceled      InvoiceStatus = "canceled"
)

// InvoiceStatuses lists every known status in lifecycle order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusValidated,
	InvoiceStatusSent,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCanceled,
}

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	for _, known := range InvoiceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// TvaMode tells whether unit prices already contain VAT.
type TvaMode string

const (
	TvaModeInclusive TvaMode = "inclusive"
	TvaModeExclusive TvaMode = "exclusive"
)

// DefaultCurrency is used when an invoice does not carry one.
const DefaultCurrency = "MAD"

// Invoice is the aggregate document: header, embedded client snapshot,
// line items, derived totals, payments and the append-only history.
// It is handled as a value; use Clone before mutating a copy.
type Invoice struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	Date      string     `json:"date"`
	DueDate   string     `json:"dueDate,omitempty"`
	Reference string     `json:"reference"`
	Vendor    string     `json:"vendor"`
	Client    ClientInfo `json:"client"`

	Items []InvoiceItem `json:"items"`

	// Derived from Items, Advance, GlobalDiscount and TvaMode.
	Subtotal      float64 `json:"subtotal"`
	TotalTva      float64 `json:"totalTva"`
	TotalTtc      float64 `json:"totalTtc"`
	Advance       float64 `json:"advance"`
	NetToPay      float64 `json:"netToPay"`
	TotalQuantity float64 `json:"totalQuantity"`

	Status         InvoiceStatus `json:"status"`
	Currency       string        `json:"currency"`
	GlobalDiscount float64       `json:"globalDiscount"`
	TvaMode        TvaMode       `json:"tvaMode"`

	Payments    []Payment      `json:"payments"`
	History     []HistoryEntry `json:"history"`
	Notes       string         `json:"notes,omitempty"`
	Attachments []string       `json:"attachments,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Version   int    `json:"version"`
}

// Clone returns a deep copy so slices are never shared between values.
func (i Invoice) Clone() Invoice {
	out := i
	out.Items = cloneSlice(i.Items)
	out.Payments = cloneSlice(i.Payments)
	out.Attachments = cloneSlice(i.Attachments)
	if i.History != nil {
		out.History = make([]HistoryEntry, len(i.History))
		for idx, h := range i.History {
			out.History[idx] = h.Clone()
		}
	}
	return out
}

// cloneSlice copies s, keeping nil and empty slices distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsSettled returns true once nothing is left to collect.
func (i *Invoice) IsSettled() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCanceled
}

// ItemByID returns the index of the item with the given id, or -1.
func (i *Invoice) ItemByID(id string) int {
	for idx, it := range i.Items {
		if it.ID == id {
			return idx
		}
	}
	return -1
}

// InvoiceItem represents one billable line.
type InvoiceItem struct {
	ID          string  `json:"id"`
	Reference   string  `json:"reference"`
	Designation string  `json:"designation"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
	TvaRate     float64 `json:"tvaRate"`  // percent, e.g. 20
	Discount    float64 `json:"discount"` // percent, 0..100
}
