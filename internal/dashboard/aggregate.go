package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thiagolins/pixbank-be/internal/logging"
	"github.com/thiagolins/pixbank-be/internal/upstream"
)

// Granularity is the calendar unit a period is bucketed into.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Safety bounds on bucket generation. A corrupt or inverted range truncates
// instead of looping; truncation is logged and flagged on the result.
const (
	maxDayBuckets   = 90
	maxWeekBuckets  = 20
	maxMonthBuckets = 24
)

// Bucket is one calendar-aligned aggregation interval. Every calendar unit
// covered by the period gets a bucket, transactions or not.
type Bucket struct {
	Key     string          `json:"key"`
	SortKey string          `json:"sort_key"`
	Label   string          `json:"label"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
}

// GuidedPoint is one chart point in the guided encoding.
type GuidedPoint struct {
	Label    string          `json:"label"`
	Entradas decimal.Decimal `json:"entradas"`
	Saidas   decimal.Decimal `json:"saidas"`
}

// Series is one named value sequence in the advanced encoding.
type Series struct {
	Name   string            `json:"name"`
	Values []decimal.Decimal `json:"values"`
}

// AdvancedChart is the label/series encoding.
type AdvancedChart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Aggregate is the full bucketing result in both chart encodings.
type Aggregate struct {
	Buckets     []Bucket      `json:"buckets"`
	Guided      []GuidedPoint `json:"guided"`
	Advanced    AdvancedChart `json:"advanced"`
	Granularity Granularity   `json:"granularity"`
	Truncated   bool          `json:"truncated,omitempty"`
}

// Aggregator folds flat transaction lists into calendar-aligned buckets.
// Bucket keys derive from the configured location, so a transaction lands in
// the calendar day its local time says it happened.
type Aggregator struct {
	loc *time.Location
	log *logging.Logger
}

// NewAggregator builds an aggregator for the given timezone.
func NewAggregator(loc *time.Location, log *logging.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc, log: log.With("component", "aggregator")}
}

// DetectGranularity picks the unit a period is charted at: days for up to a
// week, weeks for up to two months, months beyond. A 3-day range in monthly
// buckets is useless and a 2-year range in daily buckets is unreadable.
func DetectGranularity(periodStart, periodEnd time.Time) Granularity {
	days := int(math.Ceil(periodEnd.Sub(periodStart).Hours() / 24))
	switch {
	case days <= 7:
		return GranularityDay
	case days <= 60:
		return GranularityWeek
	default:
		return GranularityMonth
	}
}

// Aggregate buckets the transactions over [periodStart, periodEnd]. Pass an
// empty granularity to auto-select. It never fails: empty or malformed
// inputs degrade to zero-valued buckets, because a dashboard with no data is
// a valid state, not an error.
func (a *Aggregator) Aggregate(txs []upstream.Transaction, periodStart, periodEnd time.Time, granularity Granularity) Aggregate {
	if granularity == "" {
		granularity = DetectGranularity(periodStart, periodEnd)
	}

	buckets, truncated := a.generateCover(periodStart.In(a.loc), periodEnd.In(a.loc), granularity)
	if truncated {
		a.log.Warn("bucket generation truncated",
			"granularity", granularity,
			"period_start", periodStart,
			"period_end", periodEnd,
			"buckets", len(buckets))
	}

	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.Key] = i
	}

	for _, tx := range txs {
		key := a.bucketKey(time.Unix(tx.CreatedTimestamp, 0).In(a.loc), granularity)
		i, ok := index[key]
		if !ok {
			continue
		}
		// The upstream's side vocabulary is the single source of truth;
		// unrecognized values are skipped rather than crashing a dashboard.
		switch tx.Side {
		case "in":
			buckets[i].Inflow = buckets[i].Inflow.Add(tx.Amount)
		case "out":
			buckets[i].Outflow = buckets[i].Outflow.Add(tx.Amount)
		}
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].SortKey < buckets[j].SortKey })

	return Aggregate{
		Buckets:     buckets,
		Guided:      guidedEncoding(buckets),
		Advanced:    advancedEncoding(buckets),
		Granularity: granularity,
		Truncated:   truncated,
	}
}

// generateCover produces the zero-valued calendar cover of the period,
// independent of any transaction set.
func (a *Aggregator) generateCover(start, end time.Time, granularity Granularity) ([]Bucket, bool) {
	switch granularity {
	case GranularityDay:
		return a.dayCover(start, end)
	case GranularityWeek:
		return a.weekCover(start, end)
	default:
		return a.monthCover(start, end)
	}
}

func (a *Aggregator) dayCover(start, end time.Time) ([]Bucket, bool) {
	cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.loc)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, a.loc)

	var buckets []Bucket
	for !cur.After(last) {
		if len(buckets) >= maxDayBuckets {
			return buckets, true
		}
		key := cur.Format("2006-01-02")
		buckets = append(buckets, newBucket(key, key, dayLabel(cur)))
		cur = cur.AddDate(0, 0, 1)
	}
	return buckets, false
}

func (a *Aggregator) weekCover(start, end time.Time) ([]Bucket, bool) {
	cur := mondayOf(time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.loc))

	var buckets []Bucket
	for !cur.After(end) {
		if len(buckets) >= maxWeekBuckets {
			return buckets, true
		}
		sunday := cur.AddDate(0, 0, 6)
		key := weekKey(cur, sunday)
		buckets = append(buckets, newBucket(key, cur.Format("2006-01-02"), cur.Format("02/01")))
		cur = cur.AddDate(0, 0, 7)
	}
	return buckets, false
}

func (a *Aggregator) monthCover(start, end time.Time) ([]Bucket, bool) {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, a.loc)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, a.loc)

	var buckets []Bucket
	for !cur.After(last) {
		if len(buckets) >= maxMonthBuckets {
			return buckets, true
		}
		key := cur.Format("2006-01")
		buckets = append(buckets, newBucket(key, cur.Format("200601"), monthAbbrev(cur.Month())))
		cur = cur.AddDate(0, 1, 0)
	}
	return buckets, false
}

// bucketKey maps a transaction's local time onto the key of the calendar
// unit containing it, mirroring the cover generators exactly.
func (a *Aggregator) bucketKey(ts time.Time, granularity Granularity) string {
	switch granularity {
	case GranularityDay:
		return ts.Format("2006-01-02")
	case GranularityWeek:
		monday := mondayOf(time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, a.loc))
		return weekKey(monday, monday.AddDate(0, 0, 6))
	default:
		return ts.Format("2006-01")
	}
}

func newBucket(key, sortKey, label string) Bucket {
	return Bucket{Key: key, SortKey: sortKey, Label: label, Inflow: decimal.Zero, Outflow: decimal.Zero}
}

// mondayOf returns the Monday beginning the week containing t. Weeks run
// Monday through Sunday.
func mondayOf(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return t.AddDate(0, 0, -offset)
}

func weekKey(monday, sunday time.Time) string {
	return monday.Format("2006-01-02") + "_" + sunday.Format("2006-01-02")
}

func guidedEncoding(buckets []Bucket) []GuidedPoint {
	points := make([]GuidedPoint, len(buckets))
	for i, b := range buckets {
		points[i] = GuidedPoint{Label: b.Label, Entradas: b.Inflow, Saidas: b.Outflow}
	}
	return points
}

func advancedEncoding(buckets []Bucket) AdvancedChart {
	labels := make([]string, len(buckets))
	inflows := make([]decimal.Decimal, len(buckets))
	outflows := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
		inflows[i] = b.Inflow
		outflows[i] = b.Outflow
	}
	return AdvancedChart{
		Labels: labels,
		Series: []Series{
			{Name: "Entradas", Values: inflows},
			{Name: "Saídas", Values: outflows},
		},
	}
}

var monthAbbrevs = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

func monthAbbrev(m time.Month) string {
	return monthAbbrevs[int(m)-1]
}

func dayLabel(t time.Time) string {
	return fmt.Sprintf("%02d %s", t.Day(), monthAbbrev(t.Month()))
}
