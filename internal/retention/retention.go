// Package retention decides which archives survive a rotation pass.
//
// Two independent policies live here. The calendar policy (Classify) keeps
// everything younger than the retention window plus the first-of-month and
// first-of-year archives, and marks the rest EXPIRED. The size policy
// (SelectEvictions, Evictor) removes the oldest files under an archive root
// until the root fits its byte budget, regardless of calendar tier.
package retention

import (
	"time"

	"github.com/raoulx24/dir-archiver/internal/archive"
)

// DefaultWindowDays is the age below which every archive is kept.
const DefaultWindowDays = 7

// Tier is the retention classification of one archive in one pass.
type Tier int

const (
	// Undated archives have no parseable date and are never removed by age.
	Undated Tier = iota
	Recent
	MonthlyAnchor
	YearlyAnchor
	Expired
)

func (t Tier) String() string {
	switch t {
	case Recent:
		return "RECENT"
	case MonthlyAnchor:
		return "MONTHLY_ANCHOR"
	case YearlyAnchor:
		return "YEARLY_ANCHOR"
	case Expired:
		return "EXPIRED"
	default:
		return "UNDATED"
	}
}

// Keep reports whether archives of this tier survive the calendar policy.
func (t Tier) Keep() bool {
	return t != Expired
}

// Classification pairs an archive with its tier.
type Classification struct {
	Archive archive.Archive
	Tier    Tier
}

// Cutoff is the instant before which a dated archive is no longer RECENT.
func Cutoff(now time.Time, windowDays int) time.Time {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return now.AddDate(0, 0, -windowDays)
}

// Classify assigns a tier to every archive. It is a pure function of its
// inputs; the output preserves the input order.
//
// An archive date is taken as midnight in now's location and compared with
// Cutoff(now, windowDays).
func Classify(archives []archive.Archive, now time.Time, windowDays int) []Classification {
	cutoff := Cutoff(now, windowDays)

	out := make([]Classification, 0, len(archives))
	for _, a := range archives {
		out = append(out, Classification{Archive: a, Tier: tierOf(a, cutoff, now.Location())})
	}
	return out
}

func tierOf(a archive.Archive, cutoff time.Time, loc *time.Location) Tier {
	if !a.HasDate {
		return Undated
	}

	day := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, loc)
	if !day.Before(cutoff) {
		return Recent
	}

	if day.Day() == 1 {
		if day.Month() == time.January {
			return YearlyAnchor
		}
		return MonthlyAnchor
	}
	return Expired
}

// ExpiredArchives returns the archives the calendar policy deletes.
func ExpiredArchives(cs []Classification) []archive.Archive {
	var out []archive.Archive
	for _, c := range cs {
		if c.Tier == Expired {
			out = append(out, c.Archive)
		}
	}
	return out
}

// Counts tallies classifications per tier.
func Counts(cs []Classification) map[Tier]int {
	counts := make(map[Tier]int)
	for _, c := range cs {
		counts[c.Tier]++
	}
	return counts
}
