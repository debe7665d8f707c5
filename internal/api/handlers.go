// Package api exposes HTTP handlers for the carbon tracker service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/carbontrack/internal/auth"
	"example.com/carbontrack/internal/domain"
	"example.com/carbontrack/internal/persistence"
)

const dateLayout = "2006-01-02"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service          *domain.Service
	leaderboardLimit int
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, leaderboardLimit int) *Handler {
	return &Handler{service: service, leaderboardLimit: leaderboardLimit}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/emissions", h.emissions)
	mux.HandleFunc("/v1/emissions/summary", h.summary)
	mux.HandleFunc("/v1/leaderboard", h.leaderboard)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) emissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submitEmissions(w, r)
	case http.MethodGet:
		h.listRecords(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) submitEmissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEmissionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope emissions:write required")
		return
	}

	var req SubmitEmissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	day, err := req.day()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "day must be formatted YYYY-MM-DD")
		return
	}

	result, err := h.service.SubmitEmissions(r.Context(), domain.SubmitInput{
		TenantID:   claims.TenantID,
		UserID:     req.UserID,
		Day:        day,
		Submission: req.toSubmission(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	records := make([]RecordView, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, toRecordView(rec))
	}

	writeJSON(w, http.StatusCreated, SubmitEmissionsResponse{
		Records:     records,
		TotalCO2Kg:  result.TotalCO2Kg,
		GreenScore:  result.GreenScore,
		Reduction:   result.Reduction,
		BadgeEarned: string(result.BadgeEarned),
	})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEmissionsRead) && !claims.HasScope(auth.ScopeEmissionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope emissions:read required")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.RecordHistory(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]RecordView, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordView(rec))
	}

	writeJSON(w, http.StatusOK, ListRecordsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEmissionsRead) && !claims.HasScope(auth.ScopeEmissionsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope emissions:read required")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	window, err := parseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	summary, err := h.service.Summarize(r.Context(), claims.TenantID, userID, window)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(*summary))
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	limit := h.leaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.service.Leaderboard(r.Context(), claims.TenantID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, LeaderboardRow{
			UserID:     entry.UserID,
			GreenScore: entry.GreenScore,
			Rank:       entry.Rank,
			TotalCO2Kg: entry.TotalCO2Kg,
			BadgeCount: entry.BadgeCount,
		})
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Entries: rows})
}

// parseWindow builds the half-open [from, to) window, defaulting to the seven
// days ending after today.
func parseWindow(fromRaw, toRaw string) (domain.Window, error) {
	now := time.Now().UTC()
	end := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	start := end.AddDate(0, 0, -7)

	if fromRaw != "" {
		parsed, err := time.Parse(dateLayout, fromRaw)
		if err != nil {
			return domain.Window{}, errors.New("from must be formatted YYYY-MM-DD")
		}
		start = parsed.UTC()
	}
	if toRaw != "" {
		parsed, err := time.Parse(dateLayout, toRaw)
		if err != nil {
			return domain.Window{}, errors.New("to must be formatted YYYY-MM-DD")
		}
		end = parsed.UTC()
	}
	if !start.Before(end) {
		return domain.Window{}, errors.New("from must precede to")
	}
	return domain.Window{Start: start, End: end}, nil
}

// EntryInput is one (activity_type, quantity) pair in a submission request.
type EntryInput struct {
	ActivityType string  `json:"activity_type"`
	Quantity     float64 `json:"quantity"`
}

// SubmitEmissionsRequest is the payload for POST /v1/emissions.
type SubmitEmissionsRequest struct {
	UserID         string       `json:"user_id"`
	Day            string       `json:"day,omitempty"`
	Transportation []EntryInput `json:"transportation,omitempty"`
	Food           []EntryInput `json:"food,omitempty"`
	Energy         []EntryInput `json:"energy,omitempty"`
	Waste          []EntryInput `json:"waste,omitempty"`
}

// Validate ensures request correctness.
func (r SubmitEmissionsRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if len(r.Transportation)+len(r.Food)+len(r.Energy)+len(r.Waste) == 0 {
		return errors.New("at least one activity entry is required")
	}
	for _, entries := range [][]EntryInput{r.Transportation, r.Food, r.Energy, r.Waste} {
		for _, e := range entries {
			if strings.TrimSpace(e.ActivityType) == "" {
				return errors.New("activity_type is required on every entry")
			}
		}
	}
	return nil
}

func (r SubmitEmissionsRequest) day() (time.Time, error) {
	if r.Day == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, r.Day)
}

func (r SubmitEmissionsRequest) toSubmission() domain.Submission {
	return domain.Submission{
		Transportation: toInputs(r.Transportation),
		Food:           toInputs(r.Food),
		Energy:         toInputs(r.Energy),
		Waste:          toInputs(r.Waste),
	}
}

func toInputs(entries []EntryInput) []domain.ActivityInput {
	if len(entries) == 0 {
		return nil
	}
	out := make([]domain.ActivityInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.ActivityInput{ActivityType: e.ActivityType, Quantity: e.Quantity})
	}
	return out
}

// SubmitEmissionsResponse describes the response body for a submission.
type SubmitEmissionsResponse struct {
	Records     []RecordView `json:"records"`
	TotalCO2Kg  float64      `json:"total_co2_kg"`
	GreenScore  float64      `json:"green_score"`
	Reduction   float64      `json:"reduction"`
	BadgeEarned string       `json:"badge_earned,omitempty"`
}

// RecordView exposes one activity record.
type RecordView struct {
	RecordID     string    `json:"record_id"`
	UserID       string    `json:"user_id"`
	Category     string    `json:"category"`
	ActivityType string    `json:"activity_type"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	CO2Kg        float64   `json:"co2_kg"`
	LoggedAt     time.Time `json:"logged_at"`
}

// ListRecordsResponse packages history results.
type ListRecordsResponse struct {
	Items      []RecordView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// BadgeView exposes one earned badge.
type BadgeView struct {
	Tier     string    `json:"tier"`
	Basis    float64   `json:"basis"`
	EarnedAt time.Time `json:"earned_at"`
}

// TrendPoint is one day of the emission trend series.
type TrendPoint struct {
	Day        string  `json:"day"`
	TotalCO2Kg float64 `json:"total_co2_kg"`
}

// SummaryResponse bundles the window aggregate with the derived score.
type SummaryResponse struct {
	UserID        string             `json:"user_id"`
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	TotalCO2Kg    float64            `json:"total_co2_kg"`
	ByCategory    map[string]float64 `json:"co2_by_category"`
	GreenScore    float64            `json:"green_score"`
	Reduction     float64            `json:"reduction"`
	BadgeTier     string             `json:"badge_tier,omitempty"`
	Badges        []BadgeView        `json:"badges"`
	Trend         []TrendPoint       `json:"trend"`
	TreesToOffset int                `json:"trees_to_offset"`
	Tip           string             `json:"tip"`
}

// LeaderboardRow is one ranked leaderboard entry.
type LeaderboardRow struct {
	UserID     string  `json:"user_id"`
	GreenScore float64 `json:"green_score"`
	Rank       int     `json:"rank"`
	TotalCO2Kg float64 `json:"total_co2_kg"`
	BadgeCount int     `json:"badge_count"`
}

// LeaderboardResponse packages the ranked listing.
type LeaderboardResponse struct {
	Entries []LeaderboardRow `json:"entries"`
}

func toRecordView(rec domain.ActivityRecord) RecordView {
	return RecordView{
		RecordID:     rec.ID,
		UserID:       rec.UserID,
		Category:     string(rec.Category),
		ActivityType: rec.ActivityType,
		Quantity:     rec.Quantity,
		Unit:         rec.Unit,
		CO2Kg:        rec.CO2Kg,
		LoggedAt:     rec.LoggedAt,
	}
}

func toSummaryResponse(summary domain.UserSummary) SummaryResponse {
	byCategory := make(map[string]float64, len(summary.Summary.ByCategory))
	for category, total := range summary.Summary.ByCategory {
		byCategory[string(category)] = total
	}

	badges := make([]BadgeView, 0, len(summary.Badges))
	for _, b := range summary.Badges {
		badges = append(badges, BadgeView{Tier: string(b.Tier), Basis: b.Basis, EarnedAt: b.EarnedAt})
	}

	trend := make([]TrendPoint, 0, len(summary.Trend))
	for _, point := range summary.Trend {
		trend = append(trend, TrendPoint{Day: point.Day.Format(dateLayout), TotalCO2Kg: point.TotalCO2Kg})
	}

	return SummaryResponse{
		UserID:        summary.Summary.UserID,
		From:          summary.Summary.Window.Start,
		To:            summary.Summary.Window.End,
		TotalCO2Kg:    summary.Summary.TotalCO2Kg,
		ByCategory:    byCategory,
		GreenScore:    summary.GreenScore,
		Reduction:     summary.Reduction,
		BadgeTier:     string(summary.Tier),
		Badges:        badges,
		Trend:         trend,
		TreesToOffset: summary.TreesToOffset,
		Tip:           summary.Tip,
	}
}

// writeDomainError maps engine errors onto HTTP responses. Input defects are
// client errors; a bad baseline is a server-side misconfiguration.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownActivity):
		writeError(w, http.StatusBadRequest, "unknown_activity", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrEmptyWindow):
		writeError(w, http.StatusNotFound, "empty_window", err.Error())
	case errors.Is(err, domain.ErrInvalidBaseline):
		writeError(w, http.StatusInternalServerError, "invalid_baseline", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
