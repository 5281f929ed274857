package events

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws/events", h.handleWebSocket)
	router.GET("/events", h.listEvents)
	router.GET("/events/status", h.status)
}

type Status struct {
	Subscribers int `json:"subscribers"`
}

// handleWebSocket streams events as JSON frames. ?registry= narrows the
// stream to one collection.
func (h *Handler) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Events: websocket upgrade failed")
		return
	}

	client := h.hub.AddClient(conn, ledger.Address(c.Query("registry")))
	zap.L().With(zap.String("client", client.ID)).Debug("Events: subscriber connected")

	go h.readLoop(client)
	go h.writeLoop(client)
}

// readLoop only drains control frames; subscribers never send data.
func (h *Handler) readLoop(client *Client) {
	defer func() {
		h.hub.RemoveClient(client.ID)
		client.Conn.Close()
		zap.L().With(zap.String("client", client.ID)).Debug("Events: subscriber disconnected")
	}()

	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().With(zap.String("client", client.ID), zap.Error(err)).Warn("Events: websocket error")
			}
			return
		}
	}
}

func (h *Handler) writeLoop(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done:
			return

		case e := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteJSON(e); err != nil {
				zap.L().With(zap.String("client", client.ID), zap.Error(err)).Warn("Events: write failed")
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// @Summary      Recent events
// @Description  Most recent ledger events, newest first
// @Tags         events
// @Produce      json
// @Param        limit query int false "Max events" default(50)
// @Param        type  query string false "Event type, e.g. SaleExecuted"
// @Success      200 {object} response.APIResponse{data=[]ledger.Event}
// @Router       /events [get]
func (h *Handler) listEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	items := h.hub.History(limit, ledger.EventType(c.Query("type")))
	response.SendAPIResponse(c, http.StatusOK, true, "events listed", items)
}

// @Summary      Event stream status
// @Tags         events
// @Produce      json
// @Success      200 {object} response.APIResponse{data=Status}
// @Router       /events/status [get]
func (h *Handler) status(c *gin.Context) {
	response.SendAPIResponse(c, http.StatusOK, true, "status fetched", Status{Subscribers: h.hub.ClientCount()})
}
