package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/chess-escrow/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Фронтенд живёт на другом origin, проверку делает CORS-слой.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub *scheduler.Hub
}

func NewWebSocketHandler(hub *scheduler.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Subscribe подключает клиента к комнате турнира: живые события о
// матчах, группах и переходах состояния.
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "tournamentID")
	if room == "" {
		badRequestResponse(w, r, errors.New("tournamentID URL parameter is required"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &scheduler.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: room,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
