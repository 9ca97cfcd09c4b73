package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/knwebagency/backend/internal/middleware"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type settingsRepo interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings, updatedBy string) error
}

type Handler struct {
	repo     settingsRepo
	validate *validator.Validate
}

func NewHandler(repo settingsRepo) *Handler {
	return &Handler{
		repo:     repo,
		validate: validator.New(),
	}
}

func (handler *Handler) SetupPublicRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleGet).Methods("GET", "OPTIONS").Name("settings-get")
}

func (handler *Handler) SetupAdminRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("settings-update")
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "settingsHandler.get")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	settings, err := handler.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			http.Error(w, "settings not found", http.StatusNotFound)
			return
		}
		log.Errorf("get site settings: %s", err)
		http.Error(w, "failed to get settings", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	settingsJson, err := json.Marshal(settings)
	if err != nil {
		log.Errorf("marshal site settings: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, settingsJson)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "settingsHandler.update")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		log.Errorf("update site settings, decode request: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := handler.validate.Struct(settings); err != nil {
		http.Error(w, "invalid settings", http.StatusBadRequest)
		return
	}

	updatedBy := ""
	if principal := middleware.PrincipalFromContext(ctx); principal != nil {
		updatedBy = principal.Email
	}

	if err := handler.repo.Update(ctx, &settings, updatedBy); err != nil {
		log.Errorf("update site settings: %s", err)
		http.Error(w, "failed to update settings", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	log.Printf("site settings updated by [%s]", updatedBy)

	settingsJson, err := json.Marshal(settings)
	if err != nil {
		log.Errorf("marshal site settings: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, settingsJson)
}
