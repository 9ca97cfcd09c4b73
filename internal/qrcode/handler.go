package qrcode

import (
	"fmt"
	"net/http"

	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel/attribute"
)

const qrImageSize = 512

// People with a /connect profile page that gets a printable QR code.
var knownPersons = map[string]bool{
	"ceo": true,
	"cto": true,
}

type Handler struct {
	siteBaseURL string
}

func NewHandler(siteBaseURL string) *Handler {
	return &Handler{siteBaseURL: siteBaseURL}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/{person}", handler.handleGetQRCode).Methods("GET", "OPTIONS").Name("qrcode-get")
}

func (handler *Handler) handleGetQRCode(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "qrcodeHandler.get")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	person := mux.Vars(r)["person"]
	span.SetAttributes(attribute.String("person", person))

	if !knownPersons[person] {
		http.Error(w, "unknown person", http.StatusNotFound)
		return
	}

	profileURL := fmt.Sprintf("%s/connect/%s", handler.siteBaseURL, person)
	png, err := qrcode.Encode(profileURL, qrcode.Medium, qrImageSize)
	if err != nil {
		log.Errorf("encode qr code for %s: %s", profileURL, err)
		http.Error(w, "failed to generate qr code", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.PNG, png)
}
