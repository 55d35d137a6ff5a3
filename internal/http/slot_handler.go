package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
)

type slotService interface {
	FindSlots(ctx context.Context, params application.FindSlotsParams) ([]application.SlotCandidate, error)
}

type SlotHandler struct {
	service   slotService
	responder responder
}

func NewSlotHandler(service slotService, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{service: service, responder: newResponder(logger)}
}

func (h *SlotHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req slotSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	candidates, err := h.service.FindSlots(r.Context(), req.toParams())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotSearchResponse{
		Candidates: toCandidateDTOs(candidates),
	})
}

type slotSearchRequest struct {
	OrganizerID     string         `json:"organizer_id"`
	ParticipantIDs  []string       `json:"participant_ids"`
	DurationMinutes int            `json:"duration_minutes"`
	Range           timeWindowBody `json:"range"`
	MaxResults      int            `json:"max_results"`
}

type timeWindowBody struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r slotSearchRequest) toParams() application.FindSlotsParams {
	return application.FindSlotsParams{
		OrganizerID:     strings.TrimSpace(r.OrganizerID),
		ParticipantIDs:  append([]string(nil), r.ParticipantIDs...),
		DurationMinutes: r.DurationMinutes,
		RangeStart:      parseTime(r.Range.From),
		RangeEnd:        parseTime(r.Range.To),
		MaxResults:      r.MaxResults,
	}
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type slotSearchResponse struct {
	Candidates []candidateDTO `json:"candidates"`
}

type candidateDTO struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Score float64 `json:"score"`
}

func toCandidateDTOs(candidates []application.SlotCandidate) []candidateDTO {
	out := make([]candidateDTO, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, candidateDTO{
			Start: candidate.Start.UTC().Format(time.RFC3339Nano),
			End:   candidate.End.UTC().Format(time.RFC3339Nano),
			Score: candidate.Score,
		})
	}
	return out
}
