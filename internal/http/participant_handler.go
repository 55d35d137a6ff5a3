package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/availability"
	"github.com/example/smart-scheduler/internal/ical"
	"github.com/example/smart-scheduler/internal/interval"
)

type participantService interface {
	CreateParticipant(ctx context.Context, input application.ParticipantInput) (application.Participant, error)
	GetParticipant(ctx context.Context, id string) (application.Participant, error)
	UpdatePreferences(ctx context.Context, participantID string, input application.ParticipantInput) (application.Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
	ImportBusyIntervals(ctx context.Context, params application.ImportBusyParams) error
}

type availabilityService interface {
	Availability(ctx context.Context, params application.AvailabilityParams) ([]interval.Interval, error)
}

type ParticipantHandler struct {
	service      participantService
	availability availabilityService
	responder    responder
}

func NewParticipantHandler(service participantService, availability availabilityService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{service: service, availability: availability, responder: newResponder(logger)}
}

func (h *ParticipantHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, problems := req.toInput()
	if len(problems) > 0 {
		h.writeFieldErrors(r.Context(), w, problems)
		return
	}

	participant, err := h.service.CreateParticipant(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderParticipant(r.Context(), w, participant, http.StatusCreated)
}

func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := participantIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipant)
		return
	}

	participant, err := h.service.GetParticipant(r.Context(), participantID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderParticipant(r.Context(), w, participant, http.StatusOK)
}

func (h *ParticipantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := participantIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipant)
		return
	}

	if err := h.service.DeleteParticipant(r.Context(), participantID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ParticipantHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := participantIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipant)
		return
	}

	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, problems := req.toInput()
	if len(problems) > 0 {
		h.writeFieldErrors(r.Context(), w, problems)
		return
	}

	participant, err := h.service.UpdatePreferences(r.Context(), participantID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderParticipant(r.Context(), w, participant, http.StatusOK)
}

// Availability reports the participant's buffer-adjusted free time inside the
// requested window.
func (h *ParticipantHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := participantIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipant)
		return
	}

	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingQueryWindow)
		return
	}

	rangeStart := parseTime(from)
	rangeEnd := parseTime(to)
	if rangeStart.IsZero() || rangeEnd.IsZero() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMalformedQueryTime)
		return
	}

	free, err := h.availability.Availability(r.Context(), application.AvailabilityParams{
		ParticipantID: participantID,
		RangeStart:    rangeStart,
		RangeEnd:      rangeEnd,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Free: toIntervalDTOs(free),
	})
}

// ImportBusy appends busy blocks from an uploaded iCalendar feed to the
// participant's busy set.
func (h *ParticipantHandler) ImportBusy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := participantIDFromRequest(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipant)
		return
	}

	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "text/calendar" {
			h.responder.writeError(r.Context(), w, http.StatusUnsupportedMediaType, errUnsupportedCalendar)
			return
		}
	}

	intervals, err := ical.ParseBusyIntervals(r.Body)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadCalendarPayload)
		return
	}

	if err := h.service.ImportBusyIntervals(r.Context(), application.ImportBusyParams{
		ParticipantID: participantID,
		Intervals:     intervals,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, importBusyResponse{
		Imported: len(intervals),
	})
}

func (h *ParticipantHandler) renderParticipant(ctx context.Context, w http.ResponseWriter, participant application.Participant, status int) {
	h.responder.writeJSON(ctx, w, status, participantResponse{Participant: toParticipantDTO(participant)})
}

func (h *ParticipantHandler) writeFieldErrors(ctx context.Context, w http.ResponseWriter, problems map[string]string) {
	h.responder.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		Message: "validation failed",
		Errors:  problems,
	})
}

func participantIDFromRequest(r *http.Request) (string, bool) {
	id, ok := ParticipantIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

type participantRequest struct {
	DisplayName string         `json:"display_name"`
	Preferences preferencesDTO `json:"preferences"`
}

type preferencesDTO struct {
	Timezone      string                  `json:"timezone"`
	BufferMinutes int                     `json:"buffer_minutes"`
	WorkingHours  map[string]dayWindowDTO `json:"working_hours"`
	IdealHours    *dayWindowDTO           `json:"ideal_hours,omitempty"`
}

type dayWindowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r participantRequest) toInput() (application.ParticipantInput, map[string]string) {
	problems := make(map[string]string)
	prefs := availability.Preferences{
		Timezone:      strings.TrimSpace(r.Preferences.Timezone),
		BufferMinutes: r.Preferences.BufferMinutes,
	}

	if len(r.Preferences.WorkingHours) > 0 {
		prefs.WorkingHours = make(map[time.Weekday]availability.DayWindow, len(r.Preferences.WorkingHours))
		for name, window := range r.Preferences.WorkingHours {
			field := "preferences.working_hours." + name
			day, err := availability.ParseWeekday(strings.ToLower(strings.TrimSpace(name)))
			if err != nil {
				problems[field] = "unknown weekday"
				continue
			}
			parsed, ok := parseDayWindow(window)
			if !ok {
				problems[field] = "start and end must be HH:MM"
				continue
			}
			prefs.WorkingHours[day] = parsed
		}
	}

	if r.Preferences.IdealHours != nil {
		parsed, ok := parseDayWindow(*r.Preferences.IdealHours)
		if !ok {
			problems["preferences.ideal_hours"] = "start and end must be HH:MM"
		} else {
			prefs.IdealHours = &parsed
		}
	}

	if len(problems) == 0 {
		problems = nil
	}

	return application.ParticipantInput{
		DisplayName: strings.TrimSpace(r.DisplayName),
		Preferences: prefs,
	}, problems
}

func parseDayWindow(dto dayWindowDTO) (availability.DayWindow, bool) {
	start, err := availability.ParseClock(strings.TrimSpace(dto.Start))
	if err != nil {
		return availability.DayWindow{}, false
	}
	end, err := availability.ParseClock(strings.TrimSpace(dto.End))
	if err != nil {
		return availability.DayWindow{}, false
	}
	return availability.DayWindow{Start: start, End: end}, true
}

type participantResponse struct {
	Participant participantDTO `json:"participant"`
}

type participantDTO struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Preferences preferencesDTO `json:"preferences"`
	Version     int64          `json:"version"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

func toParticipantDTO(participant application.Participant) participantDTO {
	dto := participantDTO{
		ID:          participant.ID,
		DisplayName: participant.DisplayName,
		Version:     participant.Version,
		CreatedAt:   participant.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   participant.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	prefs := preferencesDTO{
		Timezone:      participant.Preferences.Timezone,
		BufferMinutes: participant.Preferences.BufferMinutes,
	}
	if len(participant.Preferences.WorkingHours) > 0 {
		prefs.WorkingHours = make(map[string]dayWindowDTO, len(participant.Preferences.WorkingHours))
		for day, window := range participant.Preferences.WorkingHours {
			prefs.WorkingHours[availability.WeekdayKey(day)] = dayWindowDTO{
				Start: window.Start.String(),
				End:   window.End.String(),
			}
		}
	}
	if participant.Preferences.IdealHours != nil {
		prefs.IdealHours = &dayWindowDTO{
			Start: participant.Preferences.IdealHours.Start.String(),
			End:   participant.Preferences.IdealHours.End.String(),
		}
	}
	dto.Preferences = prefs

	return dto
}

type availabilityResponse struct {
	Free []intervalDTO `json:"free"`
}

type intervalDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toIntervalDTOs(intervals []interval.Interval) []intervalDTO {
	if len(intervals) == 0 {
		return nil
	}
	out := make([]intervalDTO, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, intervalDTO{
			Start: iv.Start.UTC().Format(time.RFC3339Nano),
			End:   iv.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

type importBusyResponse struct {
	Imported int `json:"imported"`
}
