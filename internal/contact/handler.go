package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/knwebagency/backend/internal/telemetry/metrics"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const defaultListLimit = 100

type messagesRepo interface {
	Add(ctx context.Context, m *Message) error
	List(ctx context.Context, limit int) ([]Message, error)
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type Handler struct {
	repo     messagesRepo
	metrics  *metrics.Manager
	validate *validator.Validate
}

func NewHandler(repo messagesRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:     repo,
		metrics:  metricsManager,
		validate: validator.New(),
	}
}

func (handler *Handler) SetupPublicRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleSubmit).Methods("POST", "OPTIONS").Name("contact-submit")
}

func (handler *Handler) SetupAdminRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleList).Methods("GET", "OPTIONS").Name("contact-list")
	router.HandleFunc("/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("contact-delete")
}

func (handler *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contactHandler.submit")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req NewMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("submit contact message, decode request: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := handler.validate.Struct(req); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) && len(valErrs) > 0 {
			http.Error(w, fmt.Sprintf("invalid field: %s", valErrs[0].Field()), http.StatusBadRequest)
			return
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if IsSuspicious(&req) {
		userIp, _ := pkg.ReadUserIP(r)
		log.Warnf("suspicious contact submission from %s rejected", userIp)
		span.SetAttributes(attribute.Bool("suspicious", true))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	message := &Message{
		FullName:        req.FullName,
		Email:           req.Email,
		CompanyName:     req.CompanyName,
		ProjectType:     req.ProjectType,
		EstimatedBudget: req.EstimatedBudget,
		Message:         req.Message,
	}
	if err := handler.repo.Add(ctx, message); err != nil {
		log.Errorf("add contact message: %s", err)
		http.Error(w, "failed to submit message", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	handler.metrics.CounterContactMessages.Inc()
	log.Tracef("new contact message %s from [%s]", message.ID, message.Email)

	pkg.WriteResponse(w, pkg.ContentType.JSON, fmt.Sprintf(`{"added":true,"id":%q}`, message.ID), http.StatusCreated)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contactHandler.list")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	messages, err := handler.repo.List(ctx, defaultListLimit)
	if err != nil {
		log.Errorf("list contact messages: %s", err)
		http.Error(w, "failed to get messages", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	if len(messages) == 0 {
		pkg.WriteJSONResponseOK(w, `{"messages": [], "total": 0}`)
		return
	}

	messagesJson, err := json.Marshal(messages)
	if err != nil {
		log.Errorf("marshal contact messages: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"messages": %s, "total": %d}`, messagesJson, len(messages)))
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "contactHandler.delete")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("message.id", id))

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			http.Error(w, "message not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete contact message %s: %s", id, err)
		http.Error(w, "failed to delete message", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}
