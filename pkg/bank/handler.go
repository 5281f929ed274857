package bank

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftmarket/pkg/accounts"
	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

// Funds is the part of the bank exposed over HTTP.
type Funds interface {
	BalanceOf(ctx context.Context, party ledger.Address) (ledger.Amount, error)
	Deposit(ctx context.Context, to ledger.Address, amount ledger.Amount) error
}

type BankHandler struct {
	funds        Funds
	enableFaucet bool
}

func NewBankHandler(funds Funds, enableFaucet bool) *BankHandler {
	return &BankHandler{funds: funds, enableFaucet: enableFaucet}
}

func (h *BankHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.GET("/balances/:address", h.getBalance)
	if h.enableFaucet {
		router.POST("/faucet", auth, accounts.RequireAdmin(), h.faucet)
	}
}

type Balance struct {
	Address ledger.Address `json:"address"`
	Balance ledger.Amount  `json:"balance"`
}

type faucetRequest struct {
	To     string        `json:"to" binding:"required"`
	Amount ledger.Amount `json:"amount"`
}

// @Summary      Balance
// @Tags         bank
// @Produce      json
// @Param        address path string true "Ledger address"
// @Success      200 {object} response.APIResponse{data=Balance}
// @Router       /balances/{address} [get]
func (h *BankHandler) getBalance(c *gin.Context) {
	addr := ledger.Address(c.Param("address"))
	b, err := h.funds.BalanceOf(c.Request.Context(), addr)
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "balance fetched", Balance{Address: addr, Balance: b})
}

// @Summary      Faucet
// @Description  Issues new value to an address. Administrator only, development builds only.
// @Tags         bank
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body faucetRequest true "Deposit"
// @Success      200 {object} response.APIResponse{data=Balance}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /faucet [post]
func (h *BankHandler) faucet(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	to := ledger.Address(req.To)
	ctx := c.Request.Context()
	if err := h.funds.Deposit(ctx, to, req.Amount); err != nil {
		if errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidParty) {
			response.SendAPIResponse(c, http.StatusBadRequest, false, err.Error(), nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}

	zap.L().With(zap.String("to", to.String()), zap.Stringer("amount", req.Amount)).Info("Bank: faucet deposit")

	b, err := h.funds.BalanceOf(ctx, to)
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "deposit completed", Balance{Address: to, Balance: b})
}
