// Package analytics turns services, incidents and resource samples into report views:
// uptime, MTTR, per-day scores, load and stability rankings, distributions and
// bucketed metric series.
//
// Everything except Service and Handler is a pure function of its inputs and does not
// depend on input order beyond the documented tie-breaks.
//
// Two status signals coexist here. Summary.Uptime reads the live service status, while
// the per-day scores are a heuristic over incident severities. They are separate views
// and may disagree.
package analytics

import (
	"errors"
	"time"
)

// Preset names a predefined reporting window.
type Preset string

// Range presets.
const (
	Preset24h    Preset = "24h"
	Preset7d     Preset = "7d"
	Preset30d    Preset = "30d"
	Preset3m     Preset = "3m"
	PresetCustom Preset = "custom"
)

// DefaultPreset applies when no range is requested.
const DefaultPreset = Preset30d

// ErrInvalidRange is returned for unknown presets or unusable custom bounds.
var ErrInvalidRange = errors.New("invalid range")

// Range is a reporting window [Start, End) with the metric bucket width used for it.
type Range struct {
	Preset   Preset         `json:"preset"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Bucket   time.Duration  `json:"-"`
	Location *time.Location `json:"-"`
}

const dateLayout = "2006-01-02"

// ParseRange resolves a preset, or a custom start/end pair, relative to now. Calendar
// presets (7d, 30d, 3m) cover whole local days up to the end of today; 24h is a
// sliding window ending at now. Custom bounds accept RFC3339 or YYYY-MM-DD; a date-only
// end includes that whole day.
func ParseRange(preset, start, end string, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	if preset == "" {
		if start != "" || end != "" {
			preset = string(PresetCustom)
		} else {
			preset = string(DefaultPreset)
		}
	}

	r := Range{Preset: Preset(preset), Location: loc}
	tomorrow := startOfDay(now).AddDate(0, 0, 1)

	switch r.Preset {
	case Preset24h:
		r.Start, r.End = now.Add(-24*time.Hour), now
	case Preset7d:
		r.Start, r.End = startOfDay(now.AddDate(0, 0, -7)), tomorrow
	case Preset30d:
		r.Start, r.End = startOfDay(now.AddDate(0, 0, -30)), tomorrow
	case Preset3m:
		r.Start, r.End = startOfDay(now.AddDate(0, -3, 0)), tomorrow
	case PresetCustom:
		var err error
		if r.Start, _, err = parseBound(start, loc); err != nil {
			return Range{}, err
		}
		var dateOnly bool
		if r.End, dateOnly, err = parseBound(end, loc); err != nil {
			return Range{}, err
		}
		if dateOnly {
			r.End = r.End.AddDate(0, 0, 1)
		}
		if !r.End.After(r.Start) {
			return Range{}, errors.Join(ErrInvalidRange, errors.New("end must be after start"))
		}
	default:
		return Range{}, errors.Join(ErrInvalidRange, errors.New("unknown preset "+preset))
	}

	r.Bucket = bucketFor(r.Preset, r.End.Sub(r.Start))
	return r, nil
}

func parseBound(s string, loc *time.Location) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, errors.Join(ErrInvalidRange, errors.New("custom range needs start and end"))
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, errors.Join(ErrInvalidRange, err)
	}
	return t.In(loc), false, nil
}

func bucketFor(p Preset, span time.Duration) time.Duration {
	switch p {
	case Preset24h:
		return time.Hour
	case Preset7d:
		return 6 * time.Hour
	case Preset30d:
		return 24 * time.Hour
	case Preset3m:
		return 72 * time.Hour
	}
	switch {
	case span <= 24*time.Hour:
		return time.Hour
	case span <= 7*24*time.Hour:
		return 6 * time.Hour
	case span <= 31*24*time.Hour:
		return 24 * time.Hour
	default:
		return 72 * time.Hour
	}
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the local midnight of every calendar day the range touches, oldest first.
func (r Range) Days() []time.Time {
	first := startOfDay(r.Start.In(r.loc()))
	last := startOfDay(r.End.Add(-time.Nanosecond).In(r.loc()))

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r Range) loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dayKey formats t as a calendar date in loc.
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}
