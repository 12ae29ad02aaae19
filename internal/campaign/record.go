// Package campaign flattens raw Mailercloud campaign objects into fixed-shape records.
package campaign

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Column names of a flat campaign record, in output order.
const (
	ColCampaignName     = "Campaign Name"
	ColDomain           = "Domain"
	ColTotalLists       = "Total Lists"
	ColLists            = "Lists"
	ColContactCount     = "Contact Count"
	ColScheduledDate    = "Scheduled Date"
	ColSenderEmail      = "Sender Email"
	ColReplyEmail       = "Reply Email"
	ColStatus           = "Status"
	ColType             = "Type"
	ColAbuse            = "Abuse"
	ColAbusePct         = "Abuse %"
	ColClicks           = "Clicks"
	ColClickPct         = "Click %"
	ColConversions      = "Conversions"
	ColConversionsPct   = "Conversions %"
	ColDelivered        = "Delivered"
	ColDeliveredPct     = "Delivered %"
	ColHardBounce       = "Hard Bounce"
	ColHardBouncePct    = "Hard Bounce %"
	ColOpens            = "Opens"
	ColOpenPct          = "Open %"
	ColQueue            = "Queue"
	ColQueuePct         = "Queue %"
	ColQueuedTotal      = "Queued Total"
	ColSent             = "Sent"
	ColSentPct          = "Sent %"
	ColSoftBounce       = "Soft Bounce"
	ColSoftBouncePct    = "Soft Bounce %"
	ColSpamComplaints   = "Spam Complaints"
	ColSpamComplaintPct = "Spam Complaints %"
	ColUnsubscribes     = "Unsubscribes"
	ColUnsubscribePct   = "Unsubscribe %"
	ColCampaignID       = "Campaign ID"
)

// Field is one named value of a record. Value is a string, a json.Number,
// a float64 or int for derived rates, a decoded JSON list or object, or ""
// when the source field was absent.
type Field struct {
	Name  string
	Value any
}

// Record is a flat campaign record. Field order is significant: it is the
// column order of tabular output and the key order of documents.
type Record []Field

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// CampaignID returns the source campaign id as text, or "".
func (r Record) CampaignID() string {
	v, _ := r.Get(ColCampaignID)
	return FormatValue(v)
}

// Cells renders the record as one row of text cells following columns.
// Columns the record does not carry render as empty cells.
func (r Record) Cells(columns []string) []string {
	cells := make([]string, len(columns))
	for i, name := range columns {
		v, _ := r.Get(name)
		cells[i] = FormatValue(v)
	}
	return cells
}

// MarshalJSON encodes the record as a JSON object with keys in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "campaign: marshal key %q", f.Name)
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, eris.Wrapf(err, "campaign: marshal value of %q", f.Name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the record as a YAML mapping with keys in field order.
func (r Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name}
		val := &yaml.Node{}
		if err := val.Encode(Native(f.Value)); err != nil {
			return nil, eris.Wrapf(err, "campaign: encode yaml value of %q", f.Name)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// Native converts json.Number values (also inside lists and objects) into
// int64 or float64 so that drivers and encoders see real numbers.
func Native(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Native(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Native(e)
		}
		return out
	default:
		return v
	}
}

// FormatValue renders a field value as a tabular cell. Numbers keep their
// literal form, computed floats always carry a decimal point ("10.0"),
// lists and objects are rendered as JSON and absent values as "".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
