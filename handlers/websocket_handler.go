package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origins once they are fixed.
		return true
	},
}

type WebSocketHandler struct {
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs subscribes the caller to a tournament's live event stream.
// GET /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := parsePositiveInt(chi.URLParam(r, "tournamentID"), "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Error("websocket upgrade failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.RoomForTournament(tournamentID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
