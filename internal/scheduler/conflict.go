package scheduler

import "time"

// Booking represents a committed or candidate meeting window in the
// smart-scheduler domain.
type Booking struct {
	ID             string
	ParticipantIDs []string
	Start          time.Time
	End            time.Time
}

// Conflict details an overlapping booking relation that callers can act on.
type Conflict struct {
	WithBookingID string
	ParticipantID string
	Start         time.Time
	End           time.Time
}

// DetectConflicts identifies participant double-bookings for the candidate
// against existing bookings. Intervals are half-open; bookings that merely
// touch at a boundary do not conflict. The candidate's own ID is skipped so
// re-validation of a persisted booking does not report itself.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	if !candidate.End.After(candidate.Start) || len(candidate.ParticipantIDs) == 0 {
		return nil
	}

	candidateParticipants := make(map[string]struct{}, len(candidate.ParticipantIDs))
	for _, id := range candidate.ParticipantIDs {
		if id != "" {
			candidateParticipants[id] = struct{}{}
		}
	}

	var conflicts []Conflict
	for _, booking := range existing {
		if booking.ID != "" && booking.ID == candidate.ID {
			continue
		}
		if !overlaps(booking.Start, booking.End, candidate.Start, candidate.End) {
			continue
		}
		for _, id := range booking.ParticipantIDs {
			if _, ok := candidateParticipants[id]; !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				WithBookingID: booking.ID,
				ParticipantID: id,
				Start:         booking.Start,
				End:           booking.End,
			})
		}
	}

	return conflicts
}

// HasConflict reports whether any participant double-booking exists without
// materialising the full conflict list.
func HasConflict(existing []Booking, candidate Booking) bool {
	return len(DetectConflicts(existing, candidate)) > 0
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
