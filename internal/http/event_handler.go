package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/ical"
)

type eventService interface {
	CreateEvent(ctx context.Context, input application.EventInput) (application.Event, error)
	GetEvent(ctx context.Context, id string) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	ConfirmEvent(ctx context.Context, eventID string) (application.Event, error)
	CancelEvent(ctx context.Context, params application.CancelEventParams) (application.Event, error)
	CompleteEvent(ctx context.Context, eventID string) (application.Event, error)
	RescheduleEvent(ctx context.Context, params application.RescheduleEventParams) (application.Event, error)
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, http.StatusCreated)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, http.StatusOK)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.service.ListEvents(r.Context(), buildListEventsParams(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{
		Events: toEventDTOs(events),
	})
}

func (h *EventHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.ConfirmEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, http.StatusOK)
}

func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req cancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	event, err := h.service.CancelEvent(r.Context(), application.CancelEventParams{
		EventID: eventID,
		Reason:  req.reason(),
		Strict:  req.Strict,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, http.StatusOK)
}

func (h *EventHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.RescheduleEvent(r.Context(), application.RescheduleEventParams{
		EventID: eventID,
		Start:   parseTime(req.Start),
		End:     parseTime(req.End),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, http.StatusCreated)
}

func (h *EventHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.CompleteEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, http.StatusOK)
}

// ExportICal renders the event as a VCALENDAR so external calendars can subscribe.
func (h *EventHandler) ExportICal(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload, err := ical.EncodeEvent(event)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.responder.loggerFor(r.Context()).ErrorContext(r.Context(), "failed to write calendar response", "error", err)
	}
}

func (h *EventHandler) renderEvent(ctx context.Context, w http.ResponseWriter, event application.Event, status int) {
	h.responder.writeJSON(ctx, w, status, eventResponse{Event: toEventDTO(event)})
}

func eventIDFromRequest(r *http.Request) (string, bool) {
	id, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

type eventRequest struct {
	OrganizerID    string   `json:"organizer_id"`
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	MeetingURL     *string  `json:"meeting_url"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		OrganizerID:    strings.TrimSpace(r.OrganizerID),
		Title:          strings.TrimSpace(r.Title),
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		MeetingURL:     r.MeetingURL,
		ParticipantIDs: append([]string(nil), r.ParticipantIDs...),
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
	Strict bool   `json:"strict"`
}

func (r cancelRequest) reason() *string {
	trimmed := strings.TrimSpace(r.Reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type rescheduleRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID             string   `json:"id"`
	OrganizerID    string   `json:"organizer_id"`
	Title          string   `json:"title"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Status         string   `json:"status"`
	MeetingURL     *string  `json:"meeting_url,omitempty"`
	CancelReason   *string  `json:"cancel_reason,omitempty"`
	ParticipantIDs []string `json:"participant_ids"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:             event.ID,
		OrganizerID:    event.OrganizerID,
		Title:          event.Title,
		Start:          event.Start.UTC().Format(time.RFC3339Nano),
		End:            event.End.UTC().Format(time.RFC3339Nano),
		Status:         string(event.Status),
		MeetingURL:     event.MeetingURL,
		CancelReason:   event.CancelReason,
		ParticipantIDs: append([]string(nil), event.ParticipantIDs...),
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

func buildListEventsParams(values url.Values) application.ListEventsParams {
	params := application.ListEventsParams{
		Timezone: strings.TrimSpace(values.Get("timezone")),
	}

	if participants := strings.TrimSpace(values.Get("participants")); participants != "" {
		params.ParticipantIDs = parseCSV(participants)
	}

	for _, status := range parseCSV(values.Get("statuses")) {
		params.Statuses = append(params.Statuses, application.EventStatus(status))
	}

	if after := strings.TrimSpace(values.Get("starts_after")); after != "" {
		if ts := parseTime(after); !ts.IsZero() {
			params.StartsAfter = &ts
		}
	}

	if before := strings.TrimSpace(values.Get("ends_before")); before != "" {
		if ts := parseTime(before); !ts.IsZero() {
			params.EndsBefore = &ts
		}
	}

	if day := strings.TrimSpace(values.Get("day")); day != "" {
		if ts, err := time.Parse("2006-01-02", day); err == nil {
			params.Period = application.ListPeriodDay
			params.PeriodReference = ts
		}
	} else if week := strings.TrimSpace(values.Get("week")); week != "" {
		if ts, err := time.Parse("2006-01-02", week); err == nil {
			params.Period = application.ListPeriodWeek
			params.PeriodReference = ts
		}
	} else if month := strings.TrimSpace(values.Get("month")); month != "" {
		if ts, err := time.Parse("2006-01", month); err == nil {
			params.Period = application.ListPeriodMonth
			params.PeriodReference = ts
		}
	}

	return params
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
