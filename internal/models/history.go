package models

// Action is the kind of mutation recorded by a history entry.
type Action string

const (
	ActionCreated    Action = "created"
	ActionEdited     Action = "edited"
	ActionSent       Action = "sent"
	ActionPaid       Action = "paid"
	ActionCanceled   Action = "canceled"
	ActionValidated  Action = "validated"
	ActionDuplicated Action = "duplicated"
)

// Change holds the old and new value of one field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeSet maps a field path ("vendor", "client.name", "items") to its change.
type ChangeSet map[string]Change

// Keys returns the changed field paths.
func (c ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// HistoryEntry is one audit record. Entries are created once, at append
// time, and never modified afterwards.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	User      string    `json:"user"`
	Action    Action    `json:"action"`
	Changes   ChangeSet `json:"changes,omitempty"`
	Notes     string    `json:"notes,omitempty"`

	// Version is the invoice version this entry produced (0 for entries
	// written before versions were recorded).
	Version  int       `json:"version,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Clone returns a copy that shares nothing with e.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	if e.Changes != nil {
		out.Changes = make(ChangeSet, len(e.Changes))
		for k, v := range e.Changes {
			out.Changes[k] = v
		}
	}
	if e.Snapshot != nil {
		s := e.Snapshot.Clone()
		out.Snapshot = &s
	}
	return out
}

// Snapshot captures the business fields of an invoice at one version.
// Derived totals are left out: they are recomputed from the items.
type Snapshot struct {
	Number         string        `json:"number"`
	Date           string        `json:"date"`
	DueDate        string        `json:"dueDate,omitempty"`
	Reference      string        `json:"reference"`
	Vendor         string        `json:"vendor"`
	Client         ClientInfo    `json:"client"`
	Items          []InvoiceItem `json:"items"`
	Advance        float64       `json:"advance"`
	Status         InvoiceStatus `json:"status"`
	Currency       string        `json:"currency"`
	GlobalDiscount float64       `json:"globalDiscount"`
	TvaMode        TvaMode       `json:"tvaMode"`
	Payments       []Payment     `json:"payments"`
	Notes          string        `json:"notes,omitempty"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Items = cloneSlice(s.Items)
	out.Payments = cloneSlice(s.Payments)
	return out
}

// SnapshotOf extracts the business fields of inv.
func SnapshotOf(inv Invoice) Snapshot {
	return Snapshot{
		Number:         inv.Number,
		Date:           inv.Date,
		DueDate:        inv.DueDate,
		Reference:      inv.Reference,
		Vendor:         inv.Vendor,
		Client:         inv.Client,
		Items:          cloneSlice(inv.Items),
		Advance:        inv.Advance,
		Status:         inv.Status,
		Currency:       inv.Currency,
		GlobalDiscount: inv.GlobalDiscount,
		TvaMode:        inv.TvaMode,
		Payments:       cloneSlice(inv.Payments),
		Notes:          inv.Notes,
	}
}

// ApplyTo copies the snapshot fields onto inv and returns the result.
// Identity, history, timestamps, version and totals are left as they are.
func (s Snapshot) ApplyTo(inv Invoice) Invoice {
	out := inv.Clone()
	out.Number = s.Number
	out.Date = s.Date
	out.DueDate = s.DueDate
	out.Reference = s.Reference
	out.Vendor = s.Vendor
	out.Client = s.Client
	out.Items = cloneSlice(s.Items)
	out.Advance = s.Advance
	out.Status = s.Status
	out.Currency = s.Currency
	out.GlobalDiscount = s.GlobalDiscount
	out.TvaMode = s.TvaMode
	out.Payments = cloneSlice(s.Payments)
	out.Notes = s.Notes
	return out
}
