package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

func setupEventsRouter(h *Hub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(h).RegisterRoutes(r)
	return r
}

func TestHandler_ListEvents(t *testing.T) {
	hub := NewHub(10)
	hub.Publish(ev("1", ledger.ListingCreatedEvent, "0xr"))
	hub.Publish(ev("2", ledger.SaleExecutedEvent, "0xr"))
	r := setupEventsRouter(hub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events?type=SaleExecuted", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		response.APIResponse
		Data []ledger.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "2", resp.Data[0].ID)
}

func TestHandler_WebSocketStream(t *testing.T) {
	hub := NewHub(10)
	srv := httptest.NewServer(setupEventsRouter(hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?registry=0xr"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(ev("skip", ledger.ListingCreatedEvent, "0xother"))
	hub.Publish(ev("want", ledger.ListingCreatedEvent, "0xr"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got ledger.Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "want", got.ID)
	require.Equal(t, ledger.Address("0xr"), got.Registry)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
