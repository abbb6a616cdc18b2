package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrItemNotFound  = errors.New("item_not_found")
	ErrUnknownStatus = errors.New("unknown_status")
)

// InvoiceService wraps every invoice mutation: totals are recomputed, the
// business-field diff is recorded and the version is bumped. It never
// mutates its inputs.
type InvoiceService struct {
	tracker *Tracker
	log     *logrus.Logger
}

func NewInvoiceService(tracker *Tracker, log *logrus.Logger) *InvoiceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if tracker == nil {
		tracker = NewTracker(DefaultUser, log)
	}
	return &InvoiceService{tracker: tracker, log: log}
}

// Tracker exposes the history tracker used by the service.
func (s *InvoiceService) Tracker() *Tracker { return s.tracker }

// NewInvoiceParams are the caller-supplied fields of a fresh invoice.
type NewInvoiceParams struct {
	Number    string
	Date      string
	DueDate   string
	Reference string
	Vendor    string
	Client    models.ClientInfo
	Items     []models.InvoiceItem
	Advance   float64
	Currency  string
	TvaMode   models.TvaMode
	Notes     string
}

// NewInvoice creates a draft at version 1 with a single "created" entry.
func (s *InvoiceService) NewInvoice(p NewInvoiceParams) models.Invoice {
	ts := s.tracker.timestamp()
	inv := models.Invoice{
		ID:        s.tracker.NewID(),
		Number:    p.Number,
		Date:      p.Date,
		DueDate:   p.DueDate,
		Reference: p.Reference,
		Vendor:    p.Vendor,
		Client:    p.Client,
		Items:     s.keyItems(p.Items),
		Advance:   p.Advance,
		Status:    models.InvoiceStatusDraft,
		Currency:  p.Currency,
		TvaMode:   p.TvaMode,
		Payments:  []models.Payment{},
		Notes:     p.Notes,
		CreatedAt: ts,
		UpdatedAt: ts,
		Version:   1,
	}
	if inv.Currency == "" {
		inv.Currency = models.DefaultCurrency
	}
	inv = Recalculate(inv)
	inv.History = []models.HistoryEntry{s.tracker.CreatedEntry(inv, models.ActionCreated, "")}
	return inv
}

// keyItems returns a copy of items where every line has an id.
func (s *InvoiceService) keyItems(items []models.InvoiceItem) []models.InvoiceItem {
	out := make([]models.InvoiceItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = s.tracker.NewID()
		}
	}
	return out
}

// Edit records next as the new state of current. Totals of next are
// recomputed, its identity, history and version are taken from current.
func (s *InvoiceService) Edit(current, next models.Invoice) models.Invoice {
	return s.commit(current, next, models.ActionEdited, "")
}

// EditWithNotes is Edit with a free-text note on the entry.
func (s *InvoiceService) EditWithNotes(current, next models.Invoice, notes string) models.Invoice {
	return s.commit(current, next, models.ActionEdited, notes)
}

func (s *InvoiceService) commit(current, next models.Invoice, action models.Action, notes string) models.Invoice {
	n := next.Clone()
	n.ID = current.ID
	n.CreatedAt = current.CreatedAt
	n.Version = current.Version
	n.History = current.Clone().History
	if n.Items != nil {
		n.Items = s.keyItems(n.Items)
	}
	n = Recalculate(n)
	return s.tracker.AppendEntry(n, action, Diff(current, n), notes)
}

// actionForStatus picks the entry kind recorded for a status change.
func actionForStatus(status models.InvoiceStatus) models.Action {
	switch status {
	case models.InvoiceStatusValidated:
		return models.ActionValidated
	case models.InvoiceStatusSent:
		return models.ActionSent
	case models.InvoiceStatusPaid:
		return models.ActionPaid
	case models.InvoiceStatusCanceled:
		return models.ActionCanceled
	}
	return models.ActionEdited
}

// SetStatus records a status transition. Any known status is accepted from
// any other one; legality is a business-policy concern of the caller.
func (s *InvoiceService) SetStatus(current models.Invoice, status models.InvoiceStatus, notes string) (models.Invoice, error) {
	if !status.Valid() {
		return current, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	next := current.Clone()
	next.Status = status
	return s.commit(current, next, actionForStatus(status), notes), nil
}

// AddItem appends a line to the invoice.
func (s *InvoiceService) AddItem(current models.Invoice, item models.InvoiceItem) models.Invoice {
	next := current.Clone()
	if item.ID == "" {
		item.ID = s.tracker.NewID()
	}
	next.Items = append(next.Items, item)
	return s.Edit(current, next)
}

// UpdateItem replaces the line with the same id.
func (s *InvoiceService) UpdateItem(current models.Invoice, item models.InvoiceItem) (models.Invoice, error) {
	idx := current.ItemByID(item.ID)
	if idx < 0 {
		return current, fmt.Errorf("%w: %s", ErrItemNotFound, item.ID)
	}
	next := current.Clone()
	next.Items[idx] = item
	return s.Edit(current, next), nil
}

// RemoveItem drops the line with the given id.
func (s *InvoiceService) RemoveItem(current models.Invoice, id string) (models.Invoice, error) {
	idx := current.ItemByID(id)
	if idx < 0 {
		return current, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	next := current.Clone()
	next.Items = append(next.Items[:idx:idx], next.Items[idx+1:]...)
	return s.Edit(current, next), nil
}

// RecordPayment appends a payment, adds it to the advance and moves the
// status to paid or partially_paid depending on what is left to pay.
func (s *InvoiceService) RecordPayment(current models.Invoice, p models.Payment) models.Invoice {
	if p.ID == "" {
		p.ID = s.tracker.NewID()
	}
	if p.Date == "" {
		p.Date = s.tracker.Now().Format("2006-01-02")
	}
	if p.Method == "" {
		p.Method = models.PaymentMethodOther
	}
	p.Amount = Round2(p.Amount)

	next := current.Clone()
	next.Payments = append(next.Payments, p)
	next.Advance = round2(dec(current.Advance).Add(dec(p.Amount))).InexactFloat64()
	next = Recalculate(next)
	if next.NetToPay <= 0 {
		next.Status = models.InvoiceStatusPaid
	} else {
		next.Status = models.InvoiceStatusPartiallyPaid
	}
	notes := fmt.Sprintf("%s %.2f", p.Method, p.Amount)
	if p.Reference != "" {
		notes += " (" + p.Reference + ")"
	}
	return s.commit(current, next, models.ActionPaid, notes)
}

// RestoreVersion copies the business state of a past version forward. The
// result is a new version, never a rewind of the counter.
func (s *InvoiceService) RestoreVersion(current models.Invoice, version int) (models.Invoice, error) {
	snap, err := s.tracker.Snapshot(current, version)
	if err != nil {
		return current, err
	}
	restored := s.commit(current, snap.ApplyTo(current), models.ActionEdited, fmt.Sprintf("restored from version %d", version))
	s.log.WithFields(logrus.Fields{
		"invoice": current.ID,
		"from":    version,
		"version": restored.Version,
	}).Info("invoice version restored")
	return restored, nil
}

// Duplicate copies source into a new draft invoice with its own identity,
// fresh item ids and a single "duplicated" entry. source is not modified.
func (s *InvoiceService) Duplicate(source models.Invoice, number string) models.Invoice {
	if number == "" {
		number = source.Number + "-DUP"
	}
	ts := s.tracker.timestamp()
	out := source.Clone()
	out.ID = s.tracker.NewID()
	out.Number = number
	out.Items = make([]models.InvoiceItem, len(source.Items))
	for i, it := range source.Items {
		it.ID = s.tracker.NewID()
		out.Items[i] = it
	}
	out.Payments = []models.Payment{}
	out.Advance = 0
	out.Status = models.InvoiceStatusDraft
	out.CreatedAt = ts
	out.UpdatedAt = ts
	out.Version = 1
	out = Recalculate(out)
	out.History = []models.HistoryEntry{
		s.tracker.CreatedEntry(out, models.ActionDuplicated, "duplicated from "+source.Number),
	}
	return out
}
