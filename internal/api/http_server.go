package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"slotnik/internal/config"
	"slotnik/internal/metrics"
	"slotnik/internal/models"
	"slotnik/internal/service"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// HTTPServer exposes the scheduling and reservation services over a
// small JSON API.
type HTTPServer struct {
	schedules    *service.ScheduleService
	reservations *service.ReservationService
	auth         *HTTPAuth
	logger       zerolog.Logger
	server       *http.Server
}

func NewHTTPServer(
	cfg config.APIConfig,
	schedules *service.ScheduleService,
	reservations *service.ReservationService,
	logger *zerolog.Logger,
) *HTTPServer {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "http_api").Logger()
	}

	s := &HTTPServer{
		schedules:    schedules,
		reservations: reservations,
		auth:         NewHTTPAuth(cfg),
		logger:       log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/api/v1/availability/", s.auth.Wrap(http.HandlerFunc(s.handleAvailability)))
	mux.Handle("/api/v1/hosts/", s.auth.Wrap(http.HandlerFunc(s.handleHosts)))
	mux.Handle("/api/v1/reservations", s.auth.Wrap(http.HandlerFunc(s.handleReservations)))
	mux.Handle("/api/v1/reservations/", s.auth.Wrap(http.HandlerFunc(s.handleReservationByID)))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/v1/availability/{hostID}?date=2025-07-14
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hostID, err := pathID(r.URL.Path, "/api/v1/availability/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid host id")
		return
	}
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	windows, err := s.schedules.ResolveAvailability(r.Context(), hostID, date)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]windowDTO, 0, len(windows))
	for _, win := range windows {
		out = append(out, windowDTO{
			Start: models.FormatMinute(win.StartMinute),
			End:   models.FormatMinute(win.EndMinute),
		})
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		HostID:  hostID,
		Date:    date.Format(dateLayout),
		Windows: out,
	})
}

// handleHosts routes /api/v1/hosts/{id}/rules, /overrides and
// /reservations.
func (s *HTTPServer) handleHosts(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/hosts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	hostID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || hostID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid host id")
		return
	}

	switch parts[1] {
	case "rules":
		s.handleRules(w, r, hostID)
	case "overrides":
		s.handleOverrides(w, r, hostID, parts[2:])
	case "reservations":
		s.handleHostReservations(w, r, hostID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleRules(w http.ResponseWriter, r *http.Request, hostID int64) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.schedules.ListRules(r.Context(), hostID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out := make([]ruleDTO, 0, len(rules))
		for _, rule := range rules {
			out = append(out, ruleToDTO(rule))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req ruleDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rule, err := req.toModel(hostID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.schedules.SetWeeklyRule(r.Context(), rule); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ruleToDTO(rule))

	case http.MethodPut:
		var req []ruleDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rules := make([]*models.RecurringRule, 0, len(req))
		for _, dto := range req {
			rule, err := dto.toModel(hostID)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			rules = append(rules, rule)
		}
		if err := s.schedules.ReplaceWeeklyTemplate(r.Context(), hostID, rules); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"rules": len(rules)})

	case http.MethodDelete:
		weekday, err := strconv.Atoi(r.URL.Query().Get("weekday"))
		if err != nil || weekday < 0 || weekday > 6 {
			writeError(w, http.StatusBadRequest, "invalid weekday, expected 0-6")
			return
		}
		if err := s.schedules.DeleteRule(r.Context(), hostID, time.Weekday(weekday)); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleOverrides(w http.ResponseWriter, r *http.Request, hostID int64, rest []string) {
	// DELETE /api/v1/hosts/{id}/overrides/{overrideID}
	if len(rest) == 1 {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		overrideID, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid override id")
			return
		}
		if err := s.schedules.DeleteOverride(r.Context(), hostID, overrideID); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		overrides, err := s.schedules.GetOverrides(r.Context(), hostID, date)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out := make([]overrideDTO, 0, len(overrides))
		for _, o := range overrides {
			out = append(out, overrideToDTO(o))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req overrideDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		o, err := req.toModel(hostID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.schedules.AddOverride(r.Context(), o); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, overrideToDTO(o))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleHostReservations(w http.ResponseWriter, r *http.Request, hostID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	list, err := s.reservations.GetHostDay(r.Context(), hostID, date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]reservationDTO, 0, len(list))
	for _, res := range list {
		out = append(out, reservationToDTO(res))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReservations serves POST (create) and GET ?client_id= (listing).
func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateReservation(w, r)
	case http.MethodGet:
		s.handleClientReservations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start, expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end, expected RFC3339")
		return
	}
	if req.HostID <= 0 || req.ClientID <= 0 {
		writeError(w, http.StatusBadRequest, "host_id and client_id are required")
		return
	}
	if req.HourlyRate <= 0 {
		writeError(w, http.StatusBadRequest, "hourly_rate must be positive")
		return
	}

	idemKey := req.IdempotencyKey
	if header := strings.TrimSpace(r.Header.Get("Idempotency-Key")); header != "" {
		idemKey = header
	}

	res, err := s.reservations.CheckAndReserve(r.Context(), service.CreateRequest{
		HostID:         req.HostID,
		ClientID:       req.ClientID,
		Start:          start,
		End:            end,
		HourlyRate:     req.HourlyRate,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationToDTO(res))
}

func (s *HTTPServer) handleClientReservations(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	if err != nil || clientID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid client_id")
		return
	}

	from := models.DateOnly(time.Now())
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from, expected YYYY-MM-DD")
			return
		}
	}

	list, err := s.reservations.GetClientReservations(r.Context(), clientID, from)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]reservationDTO, 0, len(list))
	for _, res := range list {
		out = append(out, reservationToDTO(res))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReservationByID serves GET /{id} and POST /{id}/transition.
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		res, err := s.reservations.GetReservation(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reservationToDTO(res))

	case len(parts) == 2 && parts[1] == "transition" && r.Method == http.MethodPost:
		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ActorID <= 0 {
			writeError(w, http.StatusBadRequest, "actor_id is required")
			return
		}
		res, err := s.reservations.Transition(r.Context(), id, req.ActorID, models.TransitionAction(req.Action), req.Reason)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reservationToDTO(res))

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses paths with ids into a low-cardinality label.
func endpointLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/availability"):
		return "availability"
	case strings.HasPrefix(path, "/api/v1/hosts"):
		return "hosts"
	case strings.HasSuffix(path, "/transition"):
		return "transition"
	case strings.HasPrefix(path, "/api/v1/reservations"):
		return "reservations"
	case path == "/health":
		return "health"
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func pathID(path, prefix string) (int64, error) {
	raw := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
