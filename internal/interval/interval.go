// Package interval provides half-open UTC time interval arithmetic used by the
// availability and slot generation layers. All operations are pure; callers
// own the slices they pass in and receive fresh slices back.
package interval

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End) expressed in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the interval carries no bounds.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Valid reports whether the interval has positive length.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies fully inside the receiver.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Shrink removes d from both ends of the interval. The zero interval is
// returned when the remainder would be empty or inverted.
func (iv Interval) Shrink(d time.Duration) Interval {
	if d <= 0 {
		return iv
	}
	shrunk := Interval{Start: iv.Start.Add(d), End: iv.End.Add(-d)}
	if !shrunk.Valid() {
		return Interval{}
	}
	return shrunk
}

// Normalize sorts the intervals by start time, drops empty entries, and merges
// adjacent or overlapping ranges into a minimal sorted set.
func Normalize(set []Interval) []Interval {
	filtered := make([]Interval, 0, len(set))
	for _, iv := range set {
		if iv.Valid() {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Start.Equal(filtered[j].Start) {
			return filtered[i].End.Before(filtered[j].End)
		}
		return filtered[i].Start.Before(filtered[j].Start)
	})

	merged := make([]Interval, 0, len(filtered))
	current := filtered[0]
	for _, iv := range filtered[1:] {
		if iv.Start.After(current.End) {
			merged = append(merged, current)
			current = iv
			continue
		}
		if iv.End.After(current.End) {
			current.End = iv.End
		}
	}
	merged = append(merged, current)

	return merged
}

// Subtract removes every busy range from the free set. Both inputs are
// normalized internally; the result is sorted and non-overlapping.
func Subtract(free, busy []Interval) []Interval {
	free = Normalize(free)
	busy = Normalize(busy)
	if len(free) == 0 {
		return nil
	}
	if len(busy) == 0 {
		return free
	}

	result := make([]Interval, 0, len(free))
	for _, f := range free {
		remaining := []Interval{f}
		for _, b := range busy {
			if b.Start.After(f.End) {
				break
			}
			next := remaining[:0:0]
			for _, r := range remaining {
				if !r.Overlaps(b) {
					next = append(next, r)
					continue
				}
				if b.Start.After(r.Start) {
					next = append(next, Interval{Start: r.Start, End: b.Start})
				}
				if b.End.Before(r.End) {
					next = append(next, Interval{Start: b.End, End: r.End})
				}
			}
			remaining = next
		}
		result = append(result, remaining...)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// Intersect returns the ranges present in both sorted sets using a two-pointer
// sweep. Inputs are normalized internally.
func Intersect(a, b []Interval) []Interval {
	a = Normalize(a)
	b = Normalize(b)
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	result := make([]Interval, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if b[j].Start.After(start) {
			start = b[j].Start
		}
		end := a[i].End
		if b[j].End.Before(end) {
			end = b[j].End
		}
		if start.Before(end) {
			result = append(result, Interval{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// IntersectAll folds Intersect over every set. An empty input yields nil.
func IntersectAll(sets ...[]Interval) []Interval {
	if len(sets) == 0 {
		return nil
	}
	acc := Normalize(sets[0])
	for _, set := range sets[1:] {
		acc = Intersect(acc, set)
		if len(acc) == 0 {
			return nil
		}
	}
	return acc
}
