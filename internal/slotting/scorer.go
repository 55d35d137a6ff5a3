package slotting

import (
	"math"
	"sort"
	"time"

	"github.com/example/smart-scheduler/internal/availability"
)

// Weights tunes the relative influence of each scoring factor. Values are
// relative; the scorer normalizes by the sum of weights that actually apply,
// so results always land in [0,1].
type Weights struct {
	Midday    float64
	Slack     float64
	Earliness float64
	Ideal     float64
}

// DefaultWeights are a reasonable starting point; deployments tune them
// through configuration rather than code.
func DefaultWeights() Weights {
	return Weights{Midday: 0.30, Slack: 0.20, Earliness: 0.30, Ideal: 0.20}
}

const (
	// middaySpan is the midpoint distance at which the midday factor bottoms out.
	middaySpan = 6 * time.Hour
	// slackHalfLife shapes the diminishing return on spare room around a slot.
	slackHalfLife = 30 * time.Minute
)

// ScoreContext carries the request-scoped inputs the factors need.
type ScoreContext struct {
	RangeStart   time.Time
	RangeEnd     time.Time
	Duration     time.Duration
	Participants []availability.Preferences
}

// Scorer ranks candidate slots.
type Scorer struct {
	Weights Weights
}

// NewScorer returns a scorer, substituting default weights when all supplied
// weights are zero.
func NewScorer(weights Weights) Scorer {
	if weights.Midday == 0 && weights.Slack == 0 && weights.Earliness == 0 && weights.Ideal == 0 {
		weights = DefaultWeights()
	}
	return Scorer{Weights: weights}
}

// Rank scores every candidate and returns them best-first. Ties are broken by
// earliest start time, so the ordering is deterministic for a given input.
func (s Scorer) Rank(candidates []Candidate, ctx ScoreContext) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score = s.Score(ranked[i], ctx)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Start.Before(ranked[j].Start)
	})

	return ranked
}

// Score combines the weighted factors for one candidate. Factors that do not
// apply (no working window that day, no ideal hours configured) drop out of
// the normalization instead of skewing the result.
func (s Scorer) Score(c Candidate, ctx ScoreContext) float64 {
	var weightTotal, sum float64

	if v, ok := s.middayFactor(c, ctx); ok && s.Weights.Midday > 0 {
		weightTotal += s.Weights.Midday
		sum += s.Weights.Midday * v
	}
	if s.Weights.Slack > 0 {
		weightTotal += s.Weights.Slack
		sum += s.Weights.Slack * slackFactor(c, ctx.Duration)
	}
	if v, ok := earlinessFactor(c, ctx); ok && s.Weights.Earliness > 0 {
		weightTotal += s.Weights.Earliness
		sum += s.Weights.Earliness * v
	}
	if v, ok := s.idealFactor(c, ctx); ok && s.Weights.Ideal > 0 {
		weightTotal += s.Weights.Ideal
		sum += s.Weights.Ideal * v
	}

	if weightTotal == 0 {
		return 0
	}
	return clamp01(sum / weightTotal)
}

// middayFactor rewards slots close to the midpoint of each participant's
// working hours, averaged across participants.
func (s Scorer) middayFactor(c Candidate, ctx ScoreContext) (float64, bool) {
	slotMid := c.Start.Add(c.End.Sub(c.Start) / 2)

	var total float64
	var counted int
	for _, prefs := range ctx.Participants {
		mid, ok := availability.WorkdayMidpoint(prefs, c.Start)
		if !ok {
			continue
		}
		distance := slotMid.Sub(mid)
		if distance < 0 {
			distance = -distance
		}
		v := 1 - float64(distance)/float64(middaySpan)
		total += clamp01(v)
		counted++
	}
	if counted == 0 {
		return 0, false
	}
	return total / float64(counted), true
}

// slackFactor rewards spare room in the containing free interval beyond the
// required duration, with diminishing returns.
func slackFactor(c Candidate, duration time.Duration) float64 {
	slack := c.Free.Duration() - duration
	if slack <= 0 {
		return 0
	}
	return 1 - math.Exp(-float64(slack)/float64(slackHalfLife))
}

// earlinessFactor decays linearly from the start of the preferred range to
// its end, preferring sooner slots.
func earlinessFactor(c Candidate, ctx ScoreContext) (float64, bool) {
	span := ctx.RangeEnd.Sub(ctx.RangeStart)
	if span <= 0 {
		return 0, false
	}
	pos := float64(c.Start.Sub(ctx.RangeStart)) / float64(span)
	return clamp01(1 - pos), true
}

// idealFactor measures how much of the slot falls inside configured ideal
// hours, averaged over participants that set them.
func (s Scorer) idealFactor(c Candidate, ctx ScoreContext) (float64, bool) {
	slotLen := c.End.Sub(c.Start)
	if slotLen <= 0 {
		return 0, false
	}

	var total float64
	var counted int
	for _, prefs := range ctx.Participants {
		window, ok := availability.IdealWindow(prefs, c.Start)
		if !ok {
			continue
		}
		overlap := overlapDuration(c.Start, c.End, window.Start, window.End)
		total += clamp01(float64(overlap) / float64(slotLen))
		counted++
	}
	if counted == 0 {
		return 0, false
	}
	return total / float64(counted), true
}

func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
