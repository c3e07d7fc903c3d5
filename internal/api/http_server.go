package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookingwidget/internal/config"
	"bookingwidget/internal/database"
	"bookingwidget/internal/export"
	"bookingwidget/internal/metrics"
	"bookingwidget/internal/models"
	"bookingwidget/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"

	msgValidationFailed = "Validation failed"
	msgSlotTaken        = "Time slot already booked"
	msgInternal         = "Internal server error"
	msgNotFound         = "Booking not found"
	msgBookingCreated   = "Booking created successfully"
	msgBookingDeleted   = "Booking deleted successfully"
)

// HTTPServer exposes the booking JSON API.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings BookingAPI
	server   *http.Server
	auth     *HTTPAuth
	log      zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, bookings BookingAPI, logger *zerolog.Logger) *HTTPServer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{cfg: *cfg, bookings: bookings, log: l}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", srv.handleListBookings)
	mux.HandleFunc("GET /api/bookings/availability", srv.handleAvailability)
	mux.HandleFunc("GET /api/bookings/slots", srv.handleBookedSlots)
	mux.HandleFunc("GET /api/bookings/export", srv.handleExport)
	mux.HandleFunc("GET /api/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("DELETE /api/bookings/{id}", srv.handleDeleteBooking)
	mux.HandleFunc("GET /api/services", srv.handleServices)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)

	handler := srv.loggingMiddleware(corsMiddleware(cfg.CORS, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type createBookingRequest struct {
	FullName      string `json:"fullName"`
	ContactNumber string `json:"contactNumber"`
	Email         string `json:"email"`
	Service       string `json:"service"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type validationResponse struct {
	Error   string               `json:"error"`
	Details []service.FieldError `json:"details"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created, err := s.bookings.CreateBooking(r.Context(), models.Booking{
		FullName:      body.FullName,
		ContactNumber: body.ContactNumber,
		Email:         body.Email,
		Service:       body.Service,
		Date:          body.Date,
		Time:          body.Time,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "Error creating booking")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": msgBookingCreated,
		"booking": created,
	})
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	slot := strings.TrimSpace(r.URL.Query().Get("time"))
	if date == "" || slot == "" {
		writeError(w, http.StatusBadRequest, "Date and time are required")
		return
	}

	available, err := s.bookings.CheckAvailability(r.Context(), date, slot)
	if err != nil {
		s.writeServiceError(w, r, err, "Error checking availability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (s *HTTPServer) handleBookedSlots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	}

	normalized, booked, err := s.bookings.BookedSlots(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching booked slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": normalized, "booked": booked})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching booking")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	if err := s.bookings.DeleteBooking(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "Error deleting booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgBookingDeleted})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Error exporting bookings")
		return
	}

	f, err := export.Workbook(bookings)
	if err != nil {
		s.writeServiceError(w, r, err, "Error exporting bookings")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		s.log.Error().Err(err).Msg("write export")
	}
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, _ *http.Request) {
	catalog := s.bookings.Catalog()
	writeJSON(w, http.StatusOK, catalog)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.bookings.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func parseBookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid booking id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps the booking error taxonomy onto status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: msgValidationFailed, Details: verr.Fields})
	case errors.Is(err, database.ErrSlotTaken):
		writeError(w, http.StatusConflict, msgSlotTaken)
	case errors.Is(err, database.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		s.log.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg(logMsg)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	keys    *keyring
	limiter *rateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := strings.TrimSpace(r.Header.Get(a.keys.header))
		if err := a.keys.authorize(apiKey, requiredPermissionHTTP(r)); err != nil {
			statusCode := http.StatusUnauthorized
			if errors.Is(err, errPermissionDenied) {
				statusCode = http.StatusForbidden
			}
			writeError(w, statusCode, err.Error())
			return
		}

		if !a.limiter.allow(a.clientKey(r, apiKey)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/bookings/availability", path == "/api/bookings/slots", path == "/api/services":
		return permReadAvailability
	case path == "/api/bookings" || strings.HasPrefix(path, "/api/bookings/"):
		switch r.Method {
		case http.MethodPost:
			return permWriteBookings
		case http.MethodDelete:
			return permDeleteBookings
		default:
			return permReadBookings
		}
	}
	return ""
}

func (a *HTTPAuth) clientKey(r *http.Request, apiKey string) string {
	if apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func corsMiddleware(cfg config.APICORSConfig, next http.Handler) http.Handler {
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, requestID))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, recorder.status)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
