package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/morhendos/padel-league/schedule"
	"github.com/morhendos/padel-league/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict Origin once the frontend domain is fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub           *schedule.Hub
	leagueService services.LeagueService
	logger        *slog.Logger
}

func NewWebSocketHandler(hub *schedule.Hub, leagueService services.LeagueService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		leagueService: leagueService,
		logger:        logger,
	}
}

// ServeLeague upgrades the connection and subscribes the client to the
// league's event room.
func (h *WebSocketHandler) ServeLeague(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.leagueService.GetLeagueByID(r.Context(), leagueID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed",
			slog.Int("league_id", leagueID), slog.Any("error", err))
		return
	}

	client := &schedule.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: schedule.LeagueRoom(leagueID),
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
