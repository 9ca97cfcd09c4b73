package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/knwebagency/backend/internal/contact"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const recentMessagesLimit = 5

type recentMessagesReader interface {
	List(ctx context.Context, limit int) ([]contact.Message, error)
}

type Handler struct {
	stats    *StatsService
	messages recentMessagesReader
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(stats *StatsService, messages recentMessagesReader, hub *Hub) *Handler {
	return &Handler{
		stats:    stats,
		messages: messages,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the admin guard on this subrouter already vetted the request
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/stats", handler.handleGetStats).Methods("GET", "OPTIONS").Name("dashboard-stats")
	router.HandleFunc("/messages/recent", handler.handleRecentMessages).Methods("GET", "OPTIONS").Name("dashboard-recent-messages")
	router.HandleFunc("/ws", handler.handleWebSocket).Methods("GET").Name("dashboard-ws")
}

func (handler *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.getStats")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	stats := handler.stats.Collect(ctx)
	statsJson, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("marshal dashboard stats: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statsJson)
}

func (handler *Handler) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.recentMessages")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	messages, err := handler.messages.List(ctx, recentMessagesLimit)
	if err != nil {
		log.Errorf("dashboard recent messages: %s", err)
		http.Error(w, "failed to get recent messages", http.StatusInternalServerError)
		span.RecordError(err)
		return
	}

	if len(messages) == 0 {
		pkg.WriteJSONResponseOK(w, `{"messages": []}`)
		return
	}

	messagesJson, err := json.Marshal(messages)
	if err != nil {
		log.Errorf("marshal recent messages: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"messages": %s}`, messagesJson))
}

func (handler *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.ws")
	span.End()

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("dashboard ws upgrade: %s", err)
		return
	}

	// greet the new client with a fresh snapshot before hooking it up
	snapshot := mustMarshalPayload(Payload{
		Type:   "stats",
		Status: StatusSubscribed,
		Stats:  handler.stats.Collect(ctx),
	})
	if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		log.Errorf("dashboard ws, send snapshot: %s", err)
		_ = conn.Close()
		return
	}

	handler.hub.ServeClient(conn)
}
