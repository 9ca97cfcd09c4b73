package sitemetrics

import (
	"encoding/json"
	"net/http"

	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/event", handler.handleTrackEvent).Methods("POST", "OPTIONS").Name("metrics-track-event")
}

func (handler *Handler) handleTrackEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "siteMetricsHandler.trackEvent")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req TrackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("track event, decode request: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := handler.validate.Struct(req); err != nil {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	if userIp, err := pkg.ReadUserIP(r); err == nil {
		req.Metadata["ip"] = userIp
	}

	// fire and forget from the caller's perspective
	handler.service.TrackEvent(ctx, req.EventType, req.Page, req.Metadata)

	pkg.WriteJSONResponseOK(w, `{"tracked":true}`)
}
