// Package daterange resolves the date window sent to the campaign-list endpoint.
package daterange

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/failure"
)

// Layout is the wire format of both bounds.
const Layout = "2006-01-02"

// Range is an inclusive from/to window in Layout form.
type Range struct {
	From string `json:"date_from"`
	To   string `json:"date_to"`
}

// Override pins one or both bounds to a literal date. Empty bounds fall back
// to the computed month.
type Override struct {
	From string
	To   string
}

// IsZero reports whether no bound is pinned.
func (o Override) IsZero() bool {
	return o.From == "" && o.To == ""
}

// MonthBounds returns the first and last calendar day of the month of today.
func MonthBounds(today time.Time) (time.Time, time.Time) {
	y, m, _ := today.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, today.Location())
	// time.Date normalises month 13 into January of the next year.
	last := time.Date(y, m+1, 1, 0, 0, 0, 0, today.Location()).AddDate(0, 0, -1)
	return first, last
}

// Resolve computes the current month and applies the override on top of it.
func Resolve(today time.Time, o Override) (Range, error) {
	first, last := MonthBounds(today)
	r := Range{From: first.Format(Layout), To: last.Format(Layout)}

	if o.IsZero() {
		return r, nil
	}

	if o.From != "" {
		if _, err := time.Parse(Layout, o.From); err != nil {
			return Range{}, failure.NewConfigurationError("window.from", "expected YYYY-MM-DD, got "+o.From)
		}
		r.From = o.From
	}
	if o.To != "" {
		if _, err := time.Parse(Layout, o.To); err != nil {
			return Range{}, failure.NewConfigurationError("window.to", "expected YYYY-MM-DD, got "+o.To)
		}
		r.To = o.To
	}
	// Layout sorts lexically in date order.
	if r.From > r.To {
		return Range{}, failure.NewConfigurationError("window", "from "+r.From+" is after to "+r.To)
	}

	zap.L().Warn("daterange: fixed window overrides the current month",
		zap.String("month_from", first.Format(Layout)),
		zap.String("month_to", last.Format(Layout)),
		zap.String("from", r.From),
		zap.String("to", r.To),
	)
	return r, nil
}
