package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TimestampLayout is the ISO-8601 layout used for history and audit times.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultUser labels entries when no acting user is configured.
const DefaultUser = "Current User"

var (
	ErrVersionNotFound    = errors.New("version_not_found")
	ErrNotReconstructible = errors.New("version_not_reconstructible")
)

// Tracker appends audit entries to invoices and keeps the version counter.
// Now and NewID are swappable so tests get deterministic entries.
type Tracker struct {
	User  string
	Now   func() time.Time
	NewID func() string
	log   *logrus.Logger
}

// NewTracker returns a tracker stamping entries with user.
func NewTracker(user string, log *logrus.Logger) *Tracker {
	if user == "" {
		user = DefaultUser
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{User: user, Now: time.Now, NewID: uuid.NewString, log: log}
}

func (t *Tracker) timestamp() string {
	return t.Now().UTC().Format(TimestampLayout)
}

// AppendEntry returns a new invoice with one entry appended, UpdatedAt set
// to now and Version incremented by one. inv is left untouched.
func (t *Tracker) AppendEntry(inv models.Invoice, action models.Action, changes models.ChangeSet, notes string) models.Invoice {
	out := inv.Clone()
	ts := t.timestamp()
	out.Version = inv.Version + 1
	out.UpdatedAt = ts

	if len(changes) == 0 {
		changes = nil
	}
	snap := models.SnapshotOf(out)
	entry := models.HistoryEntry{
		ID:        t.NewID(),
		Timestamp: ts,
		User:      t.User,
		Action:    action,
		Changes:   changes,
		Notes:     notes,
		Version:   out.Version,
		Snapshot:  &snap,
	}
	out.History = append(out.History, entry)

	t.log.WithFields(logrus.Fields{
		"invoice": out.ID,
		"version": out.Version,
		"action":  action,
		"changes": len(changes),
	}).Debug("history entry appended")
	return out
}

// CreatedEntry builds the entry recorded when an invoice is first created.
func (t *Tracker) CreatedEntry(inv models.Invoice, action models.Action, notes string) models.HistoryEntry {
	snap := models.SnapshotOf(inv)
	return models.HistoryEntry{
		ID:        t.NewID(),
		Timestamp: t.timestamp(),
		User:      t.User,
		Action:    action,
		Notes:     notes,
		Version:   inv.Version,
		Snapshot:  &snap,
	}
}

// diffFields is the allow-list of top-level fields compared by Diff.
var diffFields = []string{"number", "date", "reference", "vendor", "advance", "status"}

func scalarField(inv models.Invoice, field string) any {
	switch field {
	case "number":
		return inv.Number
	case "date":
		return inv.Date
	case "reference":
		return inv.Reference
	case "vendor":
		return inv.Vendor
	case "advance":
		return inv.Advance
	case "status":
		return string(inv.Status)
	}
	return nil
}

// Diff reports the business-field changes between two invoice states.
// Items are summarised as a single "items" entry carrying the counts.
// Derived totals are never diffed.
func Diff(previous, next models.Invoice) models.ChangeSet {
	changes := models.ChangeSet{}
	for _, f := range diffFields {
		o, n := scalarField(previous, f), scalarField(next, f)
		if o != n {
			changes[f] = models.Change{Old: o, New: n}
		}
	}

	nextFields := next.Client.Fields()
	for i, f := range previous.Client.Fields() {
		if f.Value != nextFields[i].Value {
			changes["client."+f.Key] = models.Change{Old: f.Value, New: nextFields[i].Value}
		}
	}

	if !sameItems(previous.Items, next.Items) {
		changes["items"] = models.Change{
			Old: fmt.Sprintf("%d items", len(previous.Items)),
			New: fmt.Sprintf("%d items", len(next.Items)),
		}
	}
	return changes
}

func sameItems(a, b []models.InvoiceItem) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ja, jb)
}

// entryVersion returns the version an entry produced. Older entries carry
// no version; they are numbered backwards from the current one.
func entryVersion(inv models.Invoice, idx int) int {
	if v := inv.History[idx].Version; v > 0 {
		return v
	}
	return inv.Version - (len(inv.History) - 1 - idx)
}

// Snapshot reconstructs the business state of inv as it was at version.
// It uses the snapshot stored on the matching entry when there is one and
// otherwise undoes recorded changes backwards from the current state.
func (t *Tracker) Snapshot(inv models.Invoice, version int) (models.Snapshot, error) {
	if version < 1 || version > inv.Version {
		return models.Snapshot{}, fmt.Errorf("%w: %d (current %d)", ErrVersionNotFound, version, inv.Version)
	}
	if version == inv.Version {
		return models.SnapshotOf(inv), nil
	}
	for i := len(inv.History) - 1; i >= 0; i-- {
		e := inv.History[i]
		if entryVersion(inv, i) == version && e.Snapshot != nil {
			return e.Snapshot.Clone(), nil
		}
	}

	snap := models.SnapshotOf(inv)
	for i := len(inv.History) - 1; i >= 0; i-- {
		if entryVersion(inv, i) <= version {
			return snap, nil
		}
		if err := undo(&snap, inv.History[i].Changes); err != nil {
			return models.Snapshot{}, err
		}
	}
	return models.Snapshot{}, fmt.Errorf("%w: %d", ErrVersionNotFound, version)
}

// undo sets every changed field of snap back to its old value.
func undo(snap *models.Snapshot, changes models.ChangeSet) error {
	for key, c := range changes {
		switch key {
		case "number":
			snap.Number = asString(c.Old)
		case "date":
			snap.Date = asString(c.Old)
		case "reference":
			snap.Reference = asString(c.Old)
		case "vendor":
			snap.Vendor = asString(c.Old)
		case "advance":
			snap.Advance = asFloat(c.Old)
		case "status":
			snap.Status = models.InvoiceStatus(asString(c.Old))
		default:
			if ck, ok := strings.CutPrefix(key, "client."); ok && snap.Client.Set(ck, asString(c.Old)) {
				continue
			}
			return fmt.Errorf("%w: %q changed without a snapshot", ErrNotReconstructible, key)
		}
	}
	return nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}
