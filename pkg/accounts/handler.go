package accounts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

type AccountHandler struct {
	service AccountService
}

func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.POST("/accounts", h.register)
	router.GET("/accounts/me", auth, h.me)
	router.GET("/accounts", auth, RequireAdmin(), h.listAccounts)
	router.GET("/accounts/:address", h.getByAddress)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Register account
// @Description  Creates a trading account and assigns it a ledger address
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body registerRequest true "Register request"
// @Success      201 {object} response.APIResponse{data=Account}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /accounts [post]
func (h *AccountHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	a, err := h.service.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAccount):
			response.SendAPIResponse(c, http.StatusBadRequest, false, err.Error(), nil)
		case errors.Is(err, ErrAccountExists):
			response.SendAPIResponse(c, http.StatusConflict, false, err.Error(), nil)
		default:
			response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		}
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "account created", a)
}

// @Summary      Current account
// @Tags         accounts
// @Produce      json
// @Security     BasicAuth
// @Success      200 {object} response.APIResponse{data=Account}
// @Failure      401 {object} response.APIResponse
// @Router       /accounts/me [get]
func (h *AccountHandler) me(c *gin.Context) {
	a, ok := CallerFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "account fetched", a)
}

// @Summary      Get account by address
// @Tags         accounts
// @Produce      json
// @Param        address path string true "Ledger address"
// @Success      200 {object} response.APIResponse{data=Account}
// @Failure      404 {object} response.APIResponse
// @Router       /accounts/{address} [get]
func (h *AccountHandler) getByAddress(c *gin.Context) {
	a, err := h.service.GetByAddress(c.Request.Context(), ledger.Address(c.Param("address")))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.SendAPIResponse(c, http.StatusNotFound, false, "account not found", nil)
			return
		}
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "account fetched", a)
}

// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BasicAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} response.APIResponse{data=AccountList}
// @Failure      403 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /accounts [get]
func (h *AccountHandler) listAccounts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	items, total, err := h.service.ListAccounts(c.Request.Context(), page, limit)
	if err != nil {
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "accounts listed", AccountList{Items: items, Total: total, Page: page, Limit: limit})
}
