package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/accounts"
	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

func setupRegistryRouter(d *Directory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		accounts.SetCaller(c, accounts.Account{Address: ledger.Address(c.GetHeader("X-Test-Caller"))})
		c.Next()
	}
	NewRegistryHandler(d).RegisterRoutes(r, auth)
	return r
}

func call(r *gin.Engine, method, path, caller, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Caller", caller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestRegistryHandler_CollectionLifecycle(t *testing.T) {
	d := NewDirectory()
	r := setupRegistryRouter(d)

	w, resp := call(r, http.MethodPost, "/registries", "0xcreator", `{"name":"Art","royalty":{"receiver":"0xcreator","bps":1000}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := resp.Data.(map[string]any)["id"].(string)
	require.True(t, strings.HasPrefix(id, "0x"))

	w, _ = call(r, http.MethodPost, "/registries/"+id+"/assets", "0xholder", `{"asset_id":10}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, resp = call(r, http.MethodPost, "/registries/"+id+"/assets", "0xcreator", `{"asset_id":10,"to":"0xholder"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "0xholder", resp.Data.(map[string]any)["owner"])

	w, _ = call(r, http.MethodPost, "/registries/"+id+"/assets", "0xcreator", `{"asset_id":10}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w, resp = call(r, http.MethodPost, "/registries/"+id+"/assets/10/approve", "0xholder", `{"operator":"0xmarket"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "0xmarket", resp.Data.(map[string]any)["approved"])

	w, _ = call(r, http.MethodGet, "/registries/"+id+"/assets/11", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, resp = call(r, http.MethodGet, "/registries", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data, 1)

	reg, ok := d.Registry(ledger.Address(id))
	require.True(t, ok)
	owner, err := reg.OwnerOf(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, ledger.Address("0xholder"), owner)
}

func TestRegistryHandler_UnknownRegistry(t *testing.T) {
	r := setupRegistryRouter(NewDirectory())

	w, _ := call(r, http.MethodPost, "/registries/0xnope/assets", "0xcreator", `{"asset_id":1}`)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistryHandler_InvalidRoyalty(t *testing.T) {
	r := setupRegistryRouter(NewDirectory())

	w, _ := call(r, http.MethodPost, "/registries", "0xcreator", `{"name":"Art","royalty":{"bps":500}}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
