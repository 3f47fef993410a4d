package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Dosada05/cue-club/realtime"
	"github.com/Dosada05/cue-club/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub            *realtime.Hub
	bracketService services.BracketService
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler разрешает подключения только с allowedOrigins;
// пустой список или "*" разрешает все (режим разработки).
func NewWebSocketHandler(hub *realtime.Hub, bs services.BracketService, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:            hub,
		bracketService: bs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 || allowed["*"] {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// ServeWs подключает зрителя к комнате турнира.
// Клиент подключается к /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getTournamentID(r)
	if err != nil {
		http.Error(w, "Missing tournamentID", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		log.Printf("Failed to upgrade connection for tournament %s: %v", tournamentID, err)
		return
	}

	client := realtime.NewClient(h.hub, conn, tournamentID)

	// текущее состояние сетки, чтобы клиент не ждал следующего изменения
	if view, err := h.bracketService.GetBracket(r.Context(), tournamentID); err == nil {
		msg, err := json.Marshal(realtime.WebSocketMessage{
			Type:    realtime.MessageBracketUpdated,
			Payload: view,
			RoomID:  tournamentID,
		})
		if err == nil {
			client.Send <- msg
		}
	}

	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
