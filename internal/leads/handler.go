package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/knwebagency/backend/internal/telemetry/metrics"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const defaultListLimit = 200

type leadsRepo interface {
	Add(ctx context.Context, lead *Lead) error
	List(ctx context.Context, limit int) ([]Lead, error)
	CountAll(ctx context.Context) (int, error)
}

// eventTracker is the site metrics write side; it swallows its own errors.
type eventTracker interface {
	TrackEvent(ctx context.Context, eventType, page string, metadata map[string]any)
}

type Handler struct {
	repo     leadsRepo
	tracker  eventTracker
	metrics  *metrics.Manager
	validate *validator.Validate
}

func NewHandler(repo leadsRepo, tracker eventTracker, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:     repo,
		tracker:  tracker,
		metrics:  metricsManager,
		validate: validator.New(),
	}
}

func (handler *Handler) SetupPublicRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleSubscribe).Methods("POST", "OPTIONS").Name("newsletter-subscribe")
}

func (handler *Handler) SetupAdminRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleList).Methods("GET", "OPTIONS").Name("leads-list")
}

func (handler *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "leadsHandler.subscribe")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("newsletter subscribe, decode request: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := handler.validate.Struct(req); err != nil {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}

	lead := &Lead{
		Email:  req.Email,
		Source: req.Source,
		Tags:   req.Tags,
	}
	if err := handler.repo.Add(ctx, lead); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			// not an error for the visitor, they are on the list already
			pkg.WriteJSONResponseOK(w, `{"subscribed":true,"already_subscribed":true}`)
			return
		}
		log.Errorf("add lead: %s", err)
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	handler.metrics.CounterLeads.Inc()
	handler.tracker.TrackEvent(ctx, "newsletter_signup", "", map[string]any{"source": lead.Source})

	pkg.WriteResponse(w, pkg.ContentType.JSON, `{"subscribed":true,"already_subscribed":false}`, http.StatusCreated)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "leadsHandler.list")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	leads, err := handler.repo.List(ctx, defaultListLimit)
	if err != nil {
		log.Errorf("list leads: %s", err)
		http.Error(w, "failed to get leads", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	if len(leads) == 0 {
		pkg.WriteJSONResponseOK(w, `{"leads": [], "total": 0}`)
		return
	}

	leadsJson, err := json.Marshal(leads)
	if err != nil {
		log.Errorf("marshal leads: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"leads": %s, "total": %d}`, leadsJson, len(leads)))
}
