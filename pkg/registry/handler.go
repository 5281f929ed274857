package registry

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nftmarket/pkg/accounts"
	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

type RegistryHandler struct {
	service Service
}

func NewRegistryHandler(service Service) *RegistryHandler {
	return &RegistryHandler{service: service}
}

func (h *RegistryHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.GET("/registries", h.listCollections)
	router.GET("/registries/:registry/assets/:asset_id", h.getToken)

	secured := router.Group("/registries", auth)
	secured.POST("", h.createCollection)
	secured.POST("/:registry/assets", h.mint)
	secured.POST("/:registry/assets/:asset_id/approve", h.approve)
	secured.PUT("/:registry/assets/:asset_id/royalty", h.setTokenRoyalty)
	secured.PUT("/:registry/operators", h.setApprovalForAll)
}

type createCollectionRequest struct {
	Name    string  `json:"name" binding:"required"`
	Royalty Royalty `json:"royalty"`
}

type mintRequest struct {
	To      string  `json:"to"`
	AssetID *uint64 `json:"asset_id" binding:"required"`
}

type approveRequest struct {
	Operator string `json:"operator"`
}

type operatorRequest struct {
	Operator string `json:"operator" binding:"required"`
	Approved bool   `json:"approved"`
}

func sendRegistryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRegistryNotFound), errors.Is(err, ErrTokenNotFound):
		response.SendAPIResponse(c, http.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, ErrNotCreator), errors.Is(err, ErrNotApproved):
		response.SendAPIResponse(c, http.StatusForbidden, false, err.Error(), nil)
	case errors.Is(err, ErrTokenExists):
		response.SendAPIResponse(c, http.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrInvalidRoyalty), errors.Is(err, ErrWrongOwner):
		response.SendAPIResponse(c, http.StatusBadRequest, false, err.Error(), nil)
	default:
		response.SendAPIResponse(c, http.StatusInternalServerError, false, err.Error(), nil)
	}
}

func assetIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("asset_id"), 10, 64)
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid asset id", nil)
		return 0, false
	}
	return id, true
}

// @Summary      Create collection
// @Description  Creates an NFT collection owned by the caller with a default royalty in basis points
// @Tags         registries
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body createCollectionRequest true "Collection"
// @Success      201 {object} response.APIResponse{data=CollectionInfo}
// @Failure      400 {object} response.APIResponse
// @Router       /registries [post]
func (h *RegistryHandler) createCollection(c *gin.Context) {
	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	info, err := h.service.CreateCollection(c.Request.Context(), req.Name, accounts.CallerAddress(c), req.Royalty)
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "collection created", info)
}

// @Summary      List collections
// @Tags         registries
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]CollectionInfo}
// @Router       /registries [get]
func (h *RegistryHandler) listCollections(c *gin.Context) {
	items, err := h.service.ListCollections(c.Request.Context())
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "collections listed", items)
}

// @Summary      Mint
// @Tags         registries
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Registry id"
// @Param        request body mintRequest true "Mint request; to defaults to the caller"
// @Success      201 {object} response.APIResponse{data=Token}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /registries/{registry}/assets [post]
func (h *RegistryHandler) mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	ctx := c.Request.Context()
	registry := ledger.Address(c.Param("registry"))
	caller := accounts.CallerAddress(c)
	to := ledger.Address(req.To)
	if to.IsZero() {
		to = caller
	}

	if err := h.service.Mint(ctx, registry, caller, to, *req.AssetID); err != nil {
		sendRegistryError(c, err)
		return
	}
	tok, err := h.service.Token(ctx, registry, *req.AssetID)
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "token minted", tok)
}

// @Summary      Get token
// @Tags         registries
// @Produce      json
// @Param        registry path string true "Registry id"
// @Param        asset_id path int true "Asset id"
// @Success      200 {object} response.APIResponse{data=Token}
// @Failure      404 {object} response.APIResponse
// @Router       /registries/{registry}/assets/{asset_id} [get]
func (h *RegistryHandler) getToken(c *gin.Context) {
	id, ok := assetIDParam(c)
	if !ok {
		return
	}
	tok, err := h.service.Token(c.Request.Context(), ledger.Address(c.Param("registry")), id)
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "token fetched", tok)
}

// @Summary      Approve
// @Description  Lets operator move the token once; an empty operator clears the approval
// @Tags         registries
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Registry id"
// @Param        asset_id path int true "Asset id"
// @Param        request body approveRequest true "Operator"
// @Success      200 {object} response.APIResponse{data=Token}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /registries/{registry}/assets/{asset_id}/approve [post]
func (h *RegistryHandler) approve(c *gin.Context) {
	id, ok := assetIDParam(c)
	if !ok {
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	ctx := c.Request.Context()
	registry := ledger.Address(c.Param("registry"))
	if err := h.service.Approve(ctx, registry, accounts.CallerAddress(c), ledger.Address(req.Operator), id); err != nil {
		sendRegistryError(c, err)
		return
	}
	tok, err := h.service.Token(ctx, registry, id)
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "approval updated", tok)
}

// @Summary      Set token royalty
// @Tags         registries
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Registry id"
// @Param        asset_id path int true "Asset id"
// @Param        request body Royalty true "Royalty"
// @Success      200 {object} response.APIResponse{data=Token}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /registries/{registry}/assets/{asset_id}/royalty [put]
func (h *RegistryHandler) setTokenRoyalty(c *gin.Context) {
	id, ok := assetIDParam(c)
	if !ok {
		return
	}
	var req Royalty
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	ctx := c.Request.Context()
	registry := ledger.Address(c.Param("registry"))
	if err := h.service.SetTokenRoyalty(ctx, registry, accounts.CallerAddress(c), id, req); err != nil {
		sendRegistryError(c, err)
		return
	}
	tok, err := h.service.Token(ctx, registry, id)
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "royalty updated", tok)
}

// @Summary      Operator approval
// @Description  Grants or revokes an operator for every token the caller holds in the registry
// @Tags         registries
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Registry id"
// @Param        request body operatorRequest true "Operator"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Router       /registries/{registry}/operators [put]
func (h *RegistryHandler) setApprovalForAll(c *gin.Context) {
	var req operatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	err := h.service.SetApprovalForAll(c.Request.Context(), ledger.Address(c.Param("registry")), accounts.CallerAddress(c), ledger.Address(req.Operator), req.Approved)
	if err != nil {
		sendRegistryError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "operator updated", nil)
}
