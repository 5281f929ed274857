package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/config"
)

const (
	adminEmail = "admin@market.test"
	adminPass  = "admin-secret"
	marketAddr = "0x0000000000000000000000000000000000006d6b"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
}

func (c client) do(method, path, email, password string, body any) (int, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.SetBasicAuth(email, password)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (c client) register(name, email string) string {
	c.t.Helper()

	status, env := c.do(http.MethodPost, "/accounts", "", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(c.t, http.StatusCreated, status)
	var acct struct {
		Address string `json:"address"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &acct))
	return acct.Address
}

func (c client) balance(addr string) decimal.Decimal {
	c.t.Helper()

	status, env := c.do(http.MethodGet, "/balances/"+addr, "", "", nil)
	require.Equal(c.t, http.StatusOK, status)
	var b struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &b))
	return b.Balance
}

func testConfig() *config.Config {
	return &config.Config{
		Env:              "test",
		AllowedOrigins:   []string{"*"},
		LedgerStore:      storeMemory,
		MarketAddress:    marketAddr,
		ListingFee:       decimal.NewFromInt(25),
		EnableFaucet:     true,
		EventHistorySize: 50,
		Admin:            config.AdminConfig{Name: "admin", Email: adminEmail, Password: adminPass},
	}
}

func TestBuild_RejectsUnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.LedgerStore = "redis"

	_, err := build(context.Background(), cfg)
	require.ErrorContains(t, err, "unknown LEDGER_STORE")
}

func TestBuild_RequiresAdminCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Password = ""

	_, err := build(context.Background(), cfg)
	require.Error(t, err)
}

func TestMarketplace_ListAndBuyOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := build(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.close()

	c := client{t: t, router: a.router}
	seller := c.register("Seller", "seller@market.test")
	buyer := c.register("Buyer", "buyer@market.test")
	artist := c.register("Artist", "artist@market.test")

	for _, to := range []string{seller, buyer} {
		status, _ := c.do(http.MethodPost, "/faucet", adminEmail, adminPass, map[string]any{"to": to, "amount": "1000"})
		require.Equal(t, http.StatusOK, status)
	}

	status, env := c.do(http.MethodPost, "/registries", "seller@market.test", "password123", map[string]any{
		"name":    "Genesis",
		"royalty": map[string]any{"receiver": artist, "bps": 1000},
	})
	require.Equal(t, http.StatusCreated, status)
	var coll struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &coll))

	status, _ = c.do(http.MethodPost, "/registries/"+coll.ID+"/assets", "seller@market.test", "password123", map[string]any{"asset_id": 7})
	require.Equal(t, http.StatusCreated, status)

	status, _ = c.do(http.MethodPost, "/registries/"+coll.ID+"/assets/7/approve", "seller@market.test", "password123", map[string]any{"operator": marketAddr})
	require.Equal(t, http.StatusOK, status)

	// Wrong fee is rejected before anything moves.
	status, env = c.do(http.MethodPost, "/listings", "seller@market.test", "password123", map[string]any{
		"registry": coll.ID, "asset_id": 7, "price": "300", "value": "10",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "IncorrectPayment", env.Code)

	status, _ = c.do(http.MethodPost, "/listings", "seller@market.test", "password123", map[string]any{
		"registry": coll.ID, "asset_id": 7, "price": "300", "value": "25",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = c.do(http.MethodPost, "/listings/"+coll.ID+"/7/buy", "buyer@market.test", "password123", map[string]any{"value": "300"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = c.do(http.MethodPost, "/listings/"+coll.ID+"/7/delist", "seller@market.test", "password123", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NotListed", env.Code)

	status, env = c.do(http.MethodGet, "/registries/"+coll.ID+"/assets/7", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	var tok struct {
		Owner string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.Equal(t, buyer, tok.Owner)

	require.True(t, c.balance(seller).Equal(decimal.NewFromInt(1245)), c.balance(seller).String())
	require.True(t, c.balance(buyer).Equal(decimal.NewFromInt(700)))
	require.True(t, c.balance(artist).Equal(decimal.NewFromInt(30)))
	require.True(t, c.balance(marketAddr).Equal(decimal.NewFromInt(25)))

	status, env = c.do(http.MethodGet, "/events?type=SaleExecuted", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	var sales []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &sales))
	require.Len(t, sales, 1)
	require.Equal(t, buyer, sales[0]["buyer"])
}

func TestMarketplace_EscrowSurvivesRestart(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping restart test")
	}
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	cfg := testConfig()
	cfg.LedgerStore = storePostgres
	cfg.Admin.Email = "admin-" + suffix + "@market.test"
	cfg.Database = config.Database{URL: dsn, MaxConns: 4, MinConns: 1, MaxConnIdleTime: time.Minute, ApplySchemaOnStart: true}
	sellerEmail := "seller-" + suffix + "@market.test"

	first, err := build(ctx, cfg)
	require.NoError(t, err)
	c := client{t: t, router: first.router}
	seller := c.register("Seller", sellerEmail)

	status, _ := c.do(http.MethodPost, "/faucet", cfg.Admin.Email, adminPass, map[string]any{"to": seller, "amount": "1000"})
	require.Equal(t, http.StatusOK, status)

	status, env := c.do(http.MethodGet, "/fee", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	var fee decimal.Decimal
	require.NoError(t, json.Unmarshal(env.Data, &fee))

	status, env = c.do(http.MethodPost, "/registries", sellerEmail, "password123", map[string]any{"name": "Persisted"})
	require.Equal(t, http.StatusCreated, status)
	var coll struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &coll))

	status, _ = c.do(http.MethodPost, "/registries/"+coll.ID+"/assets", sellerEmail, "password123", map[string]any{"asset_id": 7})
	require.Equal(t, http.StatusCreated, status)
	status, _ = c.do(http.MethodPost, "/registries/"+coll.ID+"/assets/7/approve", sellerEmail, "password123", map[string]any{"operator": marketAddr})
	require.Equal(t, http.StatusOK, status)
	status, env = c.do(http.MethodPost, "/listings", sellerEmail, "password123", map[string]any{
		"registry": coll.ID, "asset_id": 7, "price": "300", "value": fee.String(),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	first.close()

	second, err := build(ctx, cfg)
	require.NoError(t, err)
	defer second.close()
	c = client{t: t, router: second.router}

	status, env = c.do(http.MethodPost, "/listings/"+coll.ID+"/7/delist", sellerEmail, "password123", nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = c.do(http.MethodGet, "/registries/"+coll.ID+"/assets/7", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	var tok struct {
		Owner string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.Equal(t, seller, tok.Owner)

	got := c.balance(seller)
	require.True(t, got.Equal(decimal.NewFromInt(1000).Sub(fee)), got.String())
}
