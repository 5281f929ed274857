package bank

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/accounts"
	"nftmarket/pkg/response"
)

func authAs(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts.SetCaller(c, accounts.Account{Address: "0xcaller", Role: role})
		c.Next()
	}
}

func setupBankRouter(b *Bank, faucet bool, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewBankHandler(b, faucet).RegisterRoutes(r, authAs(role))
	return r
}

func TestBankHandler_Faucet(t *testing.T) {
	b := NewBank()
	r := setupBankRouter(b, true, accounts.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/faucet", strings.NewReader(`{"to":"0xbuyer","amount":"1000"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/balances/0xbuyer", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "1000", resp.Data.(map[string]any)["balance"])
}

func TestBankHandler_Faucet_AdminOnly(t *testing.T) {
	r := setupBankRouter(NewBank(), true, accounts.RoleTrader)

	req := httptest.NewRequest(http.MethodPost, "/faucet", strings.NewReader(`{"to":"0xbuyer","amount":"1000"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestBankHandler_Faucet_Disabled(t *testing.T) {
	r := setupBankRouter(NewBank(), false, accounts.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/faucet", strings.NewReader(`{"to":"0xbuyer","amount":"1000"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBankHandler_Faucet_InvalidAmount(t *testing.T) {
	r := setupBankRouter(NewBank(), true, accounts.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/faucet", strings.NewReader(`{"to":"0xbuyer","amount":"-3"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
