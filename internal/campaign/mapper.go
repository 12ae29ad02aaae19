package campaign

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/failure"
)

// extractor produces one field value from a raw campaign.
type extractor func(object) (any, error)

type column struct {
	name    string
	extract extractor
}

// columns is the mapping table, in output order.
var columns = []column{
	{ColCampaignName, passthrough("name")},
	{ColDomain, senderDomain},
	{ColTotalLists, passthrough("recepiant", "total_lists")},
	{ColLists, passthrough("recepiant", "lists")},
	{ColContactCount, passthrough("recepiant", "lists_contact_count")},
	{ColScheduledDate, passthrough("scheduled_date", "date")},
	{ColSenderEmail, passthrough("sender", "sender_email")},
	{ColReplyEmail, passthrough("reply_email")},
	{ColStatus, passthrough("status")},
	{ColType, passthrough("type")},
	{ColAbuse, summary("abuse")},
	{ColAbusePct, summary("abuse_percentage")},
	{ColClicks, summary("clicks")},
	{ColClickPct, sentRate("clicks")},
	{ColConversions, summary("conversions")},
	{ColConversionsPct, summary("conversions_percentage")},
	{ColDelivered, summary("delivered")},
	{ColDeliveredPct, summary("delivered_percentage")},
	{ColHardBounce, summary("hard_bounce")},
	{ColHardBouncePct, sentRate("hard_bounce")},
	{ColOpens, summary("opens")},
	{ColOpenPct, summary("open_percentage")},
	{ColQueue, summary("queue")},
	{ColQueuePct, summary("queue_percentage")},
	{ColQueuedTotal, summary("queued_total")},
	{ColSent, summary("sent")},
	{ColSentPct, summary("sent_percentage")},
	{ColSoftBounce, summary("soft_bounce")},
	{ColSoftBouncePct, sentRate("soft_bounce")},
	{ColSpamComplaints, summary("spam_complaints_count")},
	{ColSpamComplaintPct, summary("spam_complaints_percentage")},
	{ColUnsubscribes, summary("unsubscribe")},
	{ColUnsubscribePct, sentRate("unsubscribe")},
	{ColCampaignID, passthrough("id")},
}

// Columns returns the record column names in output order.
func Columns() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

func passthrough(path ...string) extractor {
	return func(o object) (any, error) {
		return o.value(path...)
	}
}

func summary(key string) extractor {
	return passthrough("report_summary", key)
}

// sentRate derives round(100 * numerator / sent, 2). When sent is absent or
// falsy the rate is the integer 0.
func sentRate(numerator string) extractor {
	return func(o object) (any, error) {
		ok, err := o.truthy("report_summary", "sent")
		if err != nil {
			return nil, err
		}
		if !ok {
			return 0, nil
		}
		sent, err := o.number("report_summary", "sent")
		if err != nil {
			return nil, err
		}
		num, err := o.number("report_summary", numerator)
		if err != nil {
			return nil, err
		}
		return roundTo(num/sent*100, 2), nil
	}
}

// senderDomain returns the part of sender.sender_email between "@" and the
// first "." after it. A null address is malformed, an absent one is "".
func senderDomain(o object) (any, error) {
	v, ok, err := o.lookup("sender", "sender_email")
	if err != nil {
		return nil, err
	}
	if !ok {
		return "", nil
	}
	email, isStr := v.(string)
	if !isStr {
		return nil, eris.Errorf("sender.sender_email is %s, not a string", typeName(v))
	}
	_, host, found := strings.Cut(email, "@")
	if !found {
		return "", nil
	}
	// Only the segment up to the next "@" counts, as in a split on "@".
	host, _, _ = strings.Cut(host, "@")
	label, _, _ := strings.Cut(host, ".")
	return label, nil
}

// Map flattens one raw campaign into a Record.
func Map(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, &failure.MappingError{Err: eris.Wrap(err, "decode campaign")}
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, &failure.MappingError{Err: eris.Errorf("campaign is %s, not an object", typeName(decoded))}
	}

	o := object(m)
	rec := make(Record, 0, len(columns))
	for _, c := range columns {
		v, err := c.extract(o)
		if err != nil {
			return nil, &failure.MappingError{Field: c.name, Err: err}
		}
		rec = append(rec, Field{Name: c.name, Value: v})
	}
	return rec, nil
}

// Failure describes one raw campaign that was skipped.
type Failure struct {
	Index      int
	CampaignID string
	Err        error
}

// Report is the outcome of mapping a whole response page.
type Report struct {
	Records []Record
	Skipped []Failure
}

// Total returns how many raw campaigns were seen.
func (r Report) Total() int {
	return len(r.Records) + len(r.Skipped)
}

// MapAll maps every raw campaign in order. A campaign that fails to map is
// logged and recorded in Skipped; the remaining campaigns are still mapped.
func MapAll(raws []json.RawMessage) Report {
	var report Report
	for i, raw := range raws {
		rec, err := Map(raw)
		if err != nil {
			var me *failure.MappingError
			if errors.As(err, &me) {
				me.Index = i
			}
			id := peekID(raw)
			zap.L().Warn("campaign: skipping unmappable record",
				zap.Int("index", i),
				zap.String("campaign_id", id),
				zap.Error(err),
			)
			report.Skipped = append(report.Skipped, Failure{Index: i, CampaignID: id, Err: err})
			continue
		}
		report.Records = append(report.Records, rec)
	}
	return report
}

// peekID makes a best-effort attempt to read the id of a campaign that
// failed to map, for diagnostics.
func peekID(raw json.RawMessage) string {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || len(head.ID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(head.ID, &s); err == nil {
		return s
	}
	return string(head.ID)
}
