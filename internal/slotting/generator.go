// Package slotting generates fixed-duration candidate slots from shared free
// time and ranks them with a multi-factor desirability score.
package slotting

import (
	"time"

	"github.com/example/smart-scheduler/internal/interval"
)

const (
	// DefaultStep is the granularity at which candidate windows are emitted.
	DefaultStep = 15 * time.Minute
	// DefaultMaxCandidates bounds the number of windows produced per request.
	DefaultMaxCandidates = 20
)

// Candidate is a transient meeting window proposed to the caller. Free is the
// shared free interval the window was cut from; the scorer uses it to judge
// slack.
type Candidate struct {
	Start time.Time
	End   time.Time
	Free  interval.Interval
	Score float64
}

// Generator emits duration-fitting candidate windows from intersected free
// time.
type Generator struct {
	Step          time.Duration
	MaxCandidates int
}

// NewGenerator returns a generator with defaults applied for unset fields.
func NewGenerator(step time.Duration, maxCandidates int) Generator {
	if step <= 0 {
		step = DefaultStep
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return Generator{Step: step, MaxCandidates: maxCandidates}
}

// Generate intersects the per-participant free sets and cuts fixed-duration
// windows at step granularity from every shared interval long enough to hold
// the meeting. An empty intersection yields no candidates; that is not an
// error. Validation of the request itself happens before this point.
func (g Generator) Generate(freeSets [][]interval.Interval, duration time.Duration) []Candidate {
	if duration <= 0 || len(freeSets) == 0 {
		return nil
	}

	step := g.Step
	if step <= 0 {
		step = DefaultStep
	}
	limit := g.MaxCandidates
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}

	shared := interval.IntersectAll(freeSets...)
	if len(shared) == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, limit)
	for _, free := range shared {
		for start := free.Start; !start.Add(duration).After(free.End); start = start.Add(step) {
			candidates = append(candidates, Candidate{
				Start: start,
				End:   start.Add(duration),
				Free:  free,
			})
			if len(candidates) >= limit {
				return candidates
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	return candidates
}
