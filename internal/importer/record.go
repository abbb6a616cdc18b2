package importer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/diewo77/bon-livraison/internal/models"
)

// record is one JSON object of an import file, read loosely: numbers and
// numeric strings are coerced to the field's type, anything else reads as
// zero.
type record map[string]any

func decodeRecord(raw json.RawMessage) (record, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var r record
	if err := dec.Decode(&r); err != nil || r == nil {
		return nil, false
	}
	return r, true
}

// records splits one section of the payload into objects and counts the
// entries that are not objects. A section that is not an array counts as
// one unreadable entry.
func records(raw json.RawMessage) ([]record, int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, 0
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, 1
	}
	out := make([]record, 0, len(list))
	bad := 0
	for _, item := range list {
		if r, ok := decodeRecord(item); ok {
			out = append(out, r)
		} else {
			bad++
		}
	}
	return out, bad
}

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func (r record) float(key string) float64 {
	switch v := r[key].(type) {
	case json.Number:
		return number(v.String(), 0)
	case string:
		return number(strings.TrimSpace(v), 0)
	}
	return 0
}

func (r record) client() models.ClientInfo {
	var c models.ClientInfo
	for key := range r {
		c.Set(key, r.str(key))
	}
	return c
}

func (r record) item() models.ItemInput {
	return models.ItemInput{
		Reference:   r.str("reference"),
		Designation: r.str("designation"),
		Quantity:    r.float("quantity"),
		Unit:        r.str("unit"),
		UnitPrice:   r.float("unitPrice"),
		TvaRate:     r.float("tvaRate"),
		Discount:    r.float("discount"),
	}
}

func (r record) invoice() models.InvoiceInput {
	in := models.InvoiceInput{
		Number:    r.str("number"),
		Date:      r.str("date"),
		DueDate:   r.str("dueDate"),
		Reference: r.str("reference"),
		Vendor:    r.str("vendor"),
		Status:    models.InvoiceStatus(r.str("status")),
		Currency:  r.str("currency"),
		TvaMode:   models.TvaMode(r.str("tvaMode")),
		Advance:   r.float("advance"),
	}
	if m, ok := r["client"].(map[string]any); ok {
		c := record(m).client()
		in.Client = &c
	}
	if list, ok := r["items"].([]any); ok {
		for _, v := range list {
			if m, ok := v.(map[string]any); ok {
				in.Items = append(in.Items, record(m).item())
			}
		}
	}
	return in
}
