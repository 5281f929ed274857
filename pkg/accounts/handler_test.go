package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) Register(ctx context.Context, name, email, password string) (Account, error) {
	args := m.Called(ctx, name, email, password)
	a, _ := args.Get(0).(Account)
	return a, args.Error(1)
}

func (m *mockAccountService) Authenticate(ctx context.Context, email, password string) (Account, error) {
	args := m.Called(ctx, email, password)
	a, _ := args.Get(0).(Account)
	return a, args.Error(1)
}

func (m *mockAccountService) EnsureAccount(ctx context.Context, name, email, password, role string) (Account, error) {
	args := m.Called(ctx, name, email, password, role)
	a, _ := args.Get(0).(Account)
	return a, args.Error(1)
}

func (m *mockAccountService) GetByAddress(ctx context.Context, address ledger.Address) (Account, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(Account)
	return a, args.Error(1)
}

func (m *mockAccountService) ListAccounts(ctx context.Context, page, limit int) ([]Account, int64, error) {
	args := m.Called(ctx, page, limit)
	items, _ := args.Get(0).([]Account)
	return items, args.Get(1).(int64), args.Error(2)
}

func setupAccountRouter(service AccountService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAccountHandler(service)
	h.RegisterRoutes(r, BasicAuth(service))
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAccountHandler_Register_Success(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)

	svc.On("Register", mock.Anything, "Alice", "alice@example.com", "password1").
		Return(Account{ID: 1, Address: "0xabc", Name: "Alice", Email: "alice@example.com", Role: RoleTrader}, nil)

	body := `{"name":"Alice","email":"alice@example.com","password":"password1"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	require.True(t, resp.Success)
	require.Equal(t, "account created", resp.Message)
	svc.AssertExpectations(t)
}

func TestAccountHandler_Register_Conflict(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)

	svc.On("Register", mock.Anything, "Alice", "alice@example.com", "password1").Return(Account{}, ErrAccountExists)

	body := `{"name":"Alice","email":"alice@example.com","password":"password1"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAccountHandler_Register_BadPayload(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountHandler_Me_RequiresAuth(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/me", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
}

func TestAccountHandler_Me_WrongPassword(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)
	svc.On("Authenticate", mock.Anything, "bob@example.com", "nope").Return(Account{}, ErrInvalidCredentials)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	req.SetBasicAuth("bob@example.com", "nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountHandler_Me_Success(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)
	bob := Account{ID: 2, Address: "0xb0b", Name: "Bob", Email: "bob@example.com", Role: RoleTrader}
	svc.On("Authenticate", mock.Anything, "bob@example.com", "pw").Return(bob, nil)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	req.SetBasicAuth("bob@example.com", "pw")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	data := resp.Data.(map[string]any)
	require.Equal(t, "0xb0b", data["address"])
}

func TestAccountHandler_List_AdminOnly(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)
	svc.On("Authenticate", mock.Anything, "bob@example.com", "pw").Return(Account{Address: "0xb0b", Role: RoleTrader}, nil)
	svc.On("Authenticate", mock.Anything, "root@example.com", "pw").Return(Account{Address: "0xad", Role: RoleAdmin}, nil)
	svc.On("ListAccounts", mock.Anything, 1, 10).Return([]Account{{ID: 1}}, int64(1), nil)

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.SetBasicAuth("bob@example.com", "pw")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.SetBasicAuth("root@example.com", "pw")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertCalled(t, "ListAccounts", mock.Anything, 1, 10)
}

func TestAccountHandler_GetByAddress_NotFound(t *testing.T) {
	svc := new(mockAccountService)
	r := setupAccountRouter(svc)
	svc.On("GetByAddress", mock.Anything, ledger.Address("0xnope")).Return(Account{}, ErrAccountNotFound)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/0xnope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}
