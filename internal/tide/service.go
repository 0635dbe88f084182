package tide

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/chrissnell/trailsense/pkg/lunar"
)

const (
	// DefaultGranularity is the spacing of water-level samples
	DefaultGranularity = 10 * time.Minute

	// DefaultExtremeBand is the share of the local tidal range, measured
	// from either extreme, that counts as high or low tide.
	DefaultExtremeBand = 0.15

	// eventSearchWindow bounds the search for the extrema surrounding an
	// instant. It covers a full diurnal cycle either way.
	eventSearchWindow = 26 * time.Hour

	bisectionResolution = time.Second

	// springNeapDays is how many days either side of a day its range is
	// ranked against
	springNeapDays = 7

	// springNeapShare is the fraction of the fortnight's spread, from
	// either end, that counts as spring or neap
	springNeapShare = 0.25

	// minBeatSpread (m) below which daily ranges are taken as constant
	minBeatSpread = 0.01
)

// Type classifies a tide event or the current tide
type Type int

const (
	Half Type = iota
	High
	Low
)

func (t Type) String() string {
	switch t {
	case High:
		return "high"
	case Low:
		return "low"
	default:
		return "half"
	}
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event is a high or low tide
type Event struct {
	Time   time.Time `json:"time"`
	Type   Type      `json:"type"`
	Height float64   `json:"height"`
}

// WaterLevel is one sample of a water-level series
type WaterLevel struct {
	Time   time.Time `json:"time"`
	Height float64   `json:"height"`
}

// Range classifies a day's tidal range
type Range int

const (
	Normal Range = iota
	Spring
	Neap
)

func (r Range) String() string {
	switch r {
	case Spring:
		return "spring"
	case Neap:
		return "neap"
	default:
		return "normal"
	}
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Service evaluates tide models. It has no mutable state.
type Service struct {
	granularity time.Duration
	extremeBand float64
}

// Option configures a Service
type Option func(*Service)

// WithGranularity sets the water-level sample spacing
func WithGranularity(d time.Duration) Option {
	return func(s *Service) {
		s.granularity = d
	}
}

// WithExtremeBand sets the share of the range treated as high or low tide
func WithExtremeBand(band float64) Option {
	return func(s *Service) {
		s.extremeBand = band
	}
}

// NewService creates a Service
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		granularity: DefaultGranularity,
		extremeBand: DefaultExtremeBand,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.granularity <= 0 {
		return nil, fmt.Errorf("granularity must be positive, got %s", s.granularity)
	}
	if !(s.extremeBand > 0 && s.extremeBand < 0.5) {
		return nil, fmt.Errorf("extreme band must be in (0, 0.5), got %v", s.extremeBand)
	}
	return s, nil
}

// Height returns the water height in meters at t
func (s *Service) Height(m Model, t time.Time) float64 {
	h := m.hours(t)
	height := m.MeanLevel
	for _, c := range m.Constituents {
		height += c.Amplitude * math.Cos(radians(c.speed()*h-c.Phase))
	}
	return height
}

// Rate returns the rate of change of the water height in meters per hour
func (s *Service) Rate(m Model, t time.Time) float64 {
	h := m.hours(t)
	rate := 0.0
	for _, c := range m.Constituents {
		w := radians(c.speed())
		rate -= c.Amplitude * w * math.Sin(radians(c.speed()*h-c.Phase))
	}
	return rate
}

// IsRising reports whether the water is rising at t
func (s *Service) IsRising(m Model, t time.Time) bool {
	return s.Rate(m, t) > 0
}

// WaterLevels yields the samples covering the calendar day of date in the
// model's location, from midnight up to but excluding the next midnight.
// The sequence can be iterated any number of times.
func (s *Service) WaterLevels(m Model, date time.Time) iter.Seq[WaterLevel] {
	start, end := s.day(m, date)
	return func(yield func(WaterLevel) bool) {
		for t := start; t.Before(end); t = t.Add(s.granularity) {
			if !yield(WaterLevel{Time: t, Height: s.Height(m, t)}) {
				return
			}
		}
	}
}

// Events returns the high and low tides on the calendar day of date, in
// order. Highs and lows strictly alternate.
func (s *Service) Events(m Model, date time.Time) []Event {
	start, end := s.day(m, date)
	return s.eventsBetween(m, start, end)
}

// Current classifies the tide at now by where the water sits between the
// surrounding low and high. Without both neighbours it reports Half.
func (s *Service) Current(m Model, now time.Time) Type {
	events := s.eventsBetween(m, now.Add(-eventSearchWindow), now.Add(eventSearchWindow))

	var prev, next *Event
	for i := range events {
		if !events[i].Time.After(now) {
			prev = &events[i]
		} else {
			next = &events[i]
			break
		}
	}
	if prev == nil || next == nil {
		return Half
	}

	high, low := prev.Height, next.Height
	if low > high {
		high, low = low, high
	}
	span := high - low
	if span <= 0 {
		return Half
	}

	height := s.Height(m, now)
	band := s.extremeBand * span
	switch {
	case height >= high-band:
		return High
	case height <= low+band:
		return Low
	default:
		return Half
	}
}

// Range classifies the tidal range on the calendar day of date by ranking
// the day's range against the days within a week either side, which span
// one spring-neap cycle. The top quarter of that spread is Spring and the
// bottom quarter Neap. A model with a single constituent, or whose daily
// range does not vary over the fortnight, has no beat to rank, so the
// moon phase at midday decides.
func (s *Service) Range(m Model, date time.Time) Range {
	start, end := s.day(m, date)
	midday := start.Add(end.Sub(start) / 2)

	if m.significantConstituents() < 2 {
		return rangeFromMoon(lunar.At(midday))
	}

	ranges := make([]float64, 0, 2*springNeapDays+1)
	for d := -springNeapDays; d <= springNeapDays; d++ {
		ranges = append(ranges, s.dayRange(m, start.AddDate(0, 0, d)))
	}
	lowest, highest := slices.Min(ranges), slices.Max(ranges)
	if highest-lowest < minBeatSpread {
		return rangeFromMoon(lunar.At(midday))
	}

	position := (ranges[springNeapDays] - lowest) / (highest - lowest)
	switch {
	case position >= 1-springNeapShare:
		return Spring
	case position <= springNeapShare:
		return Neap
	default:
		return Normal
	}
}

// dayRange is the spread between the highest and lowest water on the
// calendar day of date
func (s *Service) dayRange(m Model, date time.Time) float64 {
	lowest, highest := math.Inf(1), math.Inf(-1)
	for level := range s.WaterLevels(m, date) {
		lowest = math.Min(lowest, level.Height)
		highest = math.Max(highest, level.Height)
	}
	for _, e := range s.Events(m, date) {
		lowest = math.Min(lowest, e.Height)
		highest = math.Max(highest, e.Height)
	}
	return highest - lowest
}

func rangeFromMoon(p lunar.Phase) Range {
	switch p.TidalInfluence() {
	case lunar.SpringInfluence:
		return Spring
	case lunar.NeapInfluence:
		return Neap
	default:
		return Normal
	}
}

// day returns the bounds of the calendar day containing date in the
// model's location.
func (s *Service) day(m Model, date time.Time) (time.Time, time.Time) {
	local := date.In(m.location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.location())
	return start, start.AddDate(0, 0, 1)
}

// eventsBetween finds extrema in [from, to) from sign changes of the rate
// between samples, each refined by bisection.
func (s *Service) eventsBetween(m Model, from, to time.Time) []Event {
	var events []Event

	a := from.Add(-s.granularity)
	rateA := s.Rate(m, a)
	for a.Before(to) {
		b := a.Add(s.granularity)
		rateB := s.Rate(m, b)

		var eventType Type
		switch {
		case rateA > 0 && rateB <= 0:
			eventType = High
		case rateA < 0 && rateB >= 0:
			eventType = Low
		}

		if eventType != Half {
			t := s.bisect(m, a, b, rateA)
			if !t.Before(from) && t.Before(to) {
				events = appendAlternating(events, Event{Time: t, Type: eventType, Height: s.Height(m, t)})
			}
		}

		a, rateA = b, rateB
	}
	return events
}

// bisect narrows [a, b] around the zero of the rate. rateA is the rate at a
// and has the opposite sign of the rate at b (or b is the zero).
func (s *Service) bisect(m Model, a, b time.Time, rateA float64) time.Time {
	for b.Sub(a) > bisectionResolution {
		mid := a.Add(b.Sub(a) / 2)
		rateMid := s.Rate(m, mid)
		if rateMid == 0 {
			return mid
		}
		if (rateMid > 0) == (rateA > 0) {
			a, rateA = mid, rateMid
		} else {
			b = mid
		}
	}
	return a.Add(b.Sub(a) / 2).Round(time.Second)
}

// appendAlternating adds e, merging it with a preceding event of the same
// type by keeping the more extreme of the two.
func appendAlternating(events []Event, e Event) []Event {
	if n := len(events); n > 0 && events[n-1].Type == e.Type {
		last := events[n-1]
		if (e.Type == High && e.Height > last.Height) || (e.Type == Low && e.Height < last.Height) {
			events[n-1] = e
		}
		return events
	}
	return append(events, e)
}
