// Package http provides HTTP handlers and middleware for the scheduler API.
//
// The router exposes the following endpoints:
//   - POST /slots/search: ranks candidate meeting slots for a group of
//     participants. Body and response use the DTOs defined in slot_handler.go.
//   - POST /events, GET /events, GET /events/{id}: event creation and lookup
//     exchanging the `eventDTO` payload defined in event_handler.go. Listing
//     accepts `participants`, `statuses`, `starts_after`, `ends_before` and the
//     `day`/`week`/`month` period presets with an optional `timezone`.
//   - POST /events/{id}/confirm, /cancel, /reschedule, /complete: lifecycle
//     transitions. Cancel accepts {"reason","strict"}; reschedule accepts the
//     replacement {"start","end"} window and answers 201 with the new event.
//   - GET /events/{id}/ical: the event rendered as a VCALENDAR document.
//   - POST /participants, GET /participants/{id}, DELETE /participants/{id},
//     PUT /participants/{id}/preferences: participant management exchanging the
//     `participantDTO` payload defined in participant_handler.go.
//   - GET /participants/{id}/availability?from=&to=: buffer-adjusted free time.
//   - POST /participants/{id}/busy: imports busy blocks from a text/calendar
//     body into the participant's busy set.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
