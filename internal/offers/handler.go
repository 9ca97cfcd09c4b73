package offers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type slotsRepo interface {
	Get(ctx context.Context) (*StarterSlots, error)
	Decrement(ctx context.Context) (*StarterSlots, error)
	Reset(ctx context.Context, totalSlots int) (*StarterSlots, error)
}

type Handler struct {
	repo slotsRepo
}

func NewHandler(repo slotsRepo) *Handler {
	return &Handler{repo: repo}
}

func (handler *Handler) SetupPublicRoutes(router *mux.Router) {
	router.HandleFunc("/starter/slots", handler.handleGetSlots).Methods("GET", "OPTIONS").Name("offers-starter-slots")
}

func (handler *Handler) SetupAdminRoutes(router *mux.Router) {
	router.HandleFunc("/starter/slots/decrement", handler.handleDecrement).Methods("POST", "OPTIONS").Name("offers-slots-decrement")
	router.HandleFunc("/starter/slots/reset", handler.handleReset).Methods("POST", "OPTIONS").Name("offers-slots-reset")
}

func (handler *Handler) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "offersHandler.getSlots")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	slots, err := handler.repo.Get(ctx)
	if err != nil {
		log.Errorf("get starter slots: %s", err)
		http.Error(w, "failed to get slots", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	handler.writeSlots(w, slots)
}

func (handler *Handler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "offersHandler.decrement")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	slots, err := handler.repo.Decrement(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSlotsLeft) {
			http.Error(w, "no slots left", http.StatusConflict)
			return
		}
		log.Errorf("decrement starter slots: %s", err)
		http.Error(w, "failed to decrement slots", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	handler.writeSlots(w, slots)
}

func (handler *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "offersHandler.reset")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	req := struct {
		TotalSlots int `json:"total_slots"`
	}{
		TotalSlots: defaultTotalSlots,
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	}
	if req.TotalSlots < 1 || req.TotalSlots > 1000 {
		http.Error(w, "invalid total slots", http.StatusBadRequest)
		return
	}

	slots, err := handler.repo.Reset(ctx, req.TotalSlots)
	if err != nil {
		log.Errorf("reset starter slots: %s", err)
		http.Error(w, "failed to reset slots", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	handler.writeSlots(w, slots)
}

func (handler *Handler) writeSlots(w http.ResponseWriter, slots *StarterSlots) {
	slotsJson, err := json.Marshal(slots)
	if err != nil {
		log.Errorf("marshal starter slots: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, slotsJson)
}
