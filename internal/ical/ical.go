// Package ical bridges the scheduling engine to iCalendar feeds: busy blocks
// are imported from external calendar exports and confirmed events are
// rendered for downstream consumers.
package ical

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/interval"
)

const prodID = "-//smart-scheduler//EN"

// Recurring events are expanded up to one year past their first occurrence so
// unbounded rules cannot grow an import without limit.
const (
	recurrenceHorizon = 365 * 24 * time.Hour
	maxRecurrences    = 366
)

// ParseBusyIntervals decodes an iCalendar stream and returns the busy blocks
// it describes as normalized UTC intervals. Cancelled events and components
// without both start and end times are skipped.
func ParseBusyIntervals(r io.Reader) ([]interval.Interval, error) {
	decoder := ical.NewDecoder(r)

	var intervals []interval.Interval
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ical: decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if status := comp.Props.Get(ical.PropStatus); status != nil && status.Value == "CANCELLED" {
				continue
			}

			start, ok := componentTime(comp, ical.PropDateTimeStart)
			if !ok {
				continue
			}
			end, ok := componentTime(comp, ical.PropDateTimeEnd)
			if !ok {
				continue
			}

			intervals = append(intervals, expandOccurrences(comp, start, end)...)
		}
	}

	return interval.Normalize(intervals), nil
}

// expandOccurrences turns a VEVENT into concrete busy blocks. Events with an
// RRULE are expanded occurrence by occurrence, each keeping the original
// duration; events without one yield a single block.
func expandOccurrences(comp *ical.Component, start, end time.Time) []interval.Interval {
	event := ical.Event{Component: comp}
	set, err := event.RecurrenceSet(time.UTC)
	if err != nil || set == nil {
		iv := interval.Interval{Start: start.UTC(), End: end.UTC()}
		if !iv.Valid() {
			return nil
		}
		return []interval.Interval{iv}
	}

	duration := end.Sub(start)
	if duration <= 0 {
		return nil
	}

	var intervals []interval.Interval
	for i, occurrence := range set.Between(start, start.Add(recurrenceHorizon), true) {
		if i >= maxRecurrences {
			break
		}
		intervals = append(intervals, interval.Interval{
			Start: occurrence.UTC(),
			End:   occurrence.Add(duration).UTC(),
		})
	}
	return intervals
}

func componentTime(comp *ical.Component, name string) (time.Time, bool) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, false
	}
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EncodeEvent renders a single scheduled event as a VCALENDAR document.
func EncodeEvent(event application.Event) ([]byte, error) {
	if event.ID == "" {
		return nil, fmt.Errorf("ical: event id is required")
	}
	if !event.End.After(event.Start) {
		return nil, fmt.Errorf("ical: event window is empty")
	}

	component := ical.NewComponent(ical.CompEvent)
	component.Props.SetText(ical.PropUID, event.ID)
	component.Props.SetText(ical.PropSummary, event.Title)
	component.Props.SetDateTime(ical.PropDateTimeStamp, event.UpdatedAt.UTC())
	component.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	component.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	component.Props.SetText(ical.PropStatus, statusValue(event.Status))
	if event.MeetingURL != nil && *event.MeetingURL != "" {
		component.Props.SetText(ical.PropURL, *event.MeetingURL)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Children = append(cal.Children, component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("ical: encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func statusValue(status application.EventStatus) string {
	switch status {
	case application.EventStatusConfirmed, application.EventStatusCompleted:
		return "CONFIRMED"
	case application.EventStatusCancelled:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}
