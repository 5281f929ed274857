package market

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftmarket/pkg/accounts"
	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

type MarketHandler struct {
	service MarketService
}

func NewMarketHandler(service MarketService) *MarketHandler {
	return &MarketHandler{service: service}
}

// RegisterRoutes mounts the marketplace API. auth must resolve the caller
// (see accounts.BasicAuth).
func (h *MarketHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.GET("/market", h.info)
	router.GET("/listings", h.listListings)
	router.GET("/listings/:registry/:asset_id", h.getListing)
	router.GET("/fee", h.getFee)

	secured := router.Group("/", auth)
	secured.POST("/listings", h.createListing)
	secured.PATCH("/listings/:registry/:asset_id/price", h.updatePrice)
	secured.POST("/listings/:registry/:asset_id/delist", h.delist)
	secured.POST("/listings/:registry/:asset_id/buy", h.buy)
	secured.PUT("/fee", h.setFee)
	secured.POST("/withdraw", h.withdraw)
}

type createListingRequest struct {
	Registry string        `json:"registry" binding:"required"`
	AssetID  *uint64       `json:"asset_id" binding:"required"`
	Price    ledger.Amount `json:"price"`
	Value    ledger.Amount `json:"value"`
}

type updatePriceRequest struct {
	Price ledger.Amount `json:"price"`
}

type buyRequest struct {
	Value ledger.Amount `json:"value"`
}

type setFeeRequest struct {
	Fee ledger.Amount `json:"fee"`
}

// statusFor maps a ledger rejection to its HTTP status.
func statusFor(err error) int {
	switch ledger.Code(err) {
	case "InvalidPrice", "IncorrectPayment":
		return http.StatusBadRequest
	case "NotListed":
		return http.StatusNotFound
	case "NotAuthorized":
		return http.StatusForbidden
	case "TransferFailed":
		return http.StatusConflict
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func sendLedgerError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().With(zap.String("path", c.FullPath()), zap.Error(err)).Error("Market: request failed")
	}
	response.SendError(c, status, ledger.Code(err), err)
}

func listingParams(c *gin.Context) (ledger.Address, uint64, bool) {
	registry := ledger.Address(c.Param("registry"))
	if registry.IsZero() {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid registry", nil)
		return "", 0, false
	}
	assetID, err := strconv.ParseUint(c.Param("asset_id"), 10, 64)
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid asset id", nil)
		return "", 0, false
	}
	return registry, assetID, true
}

// @Summary      Marketplace info
// @Tags         market
// @Produce      json
// @Success      200 {object} response.APIResponse{data=MarketInfo}
// @Router       /market [get]
func (h *MarketHandler) info(c *gin.Context) {
	fee, err := h.service.ListingFee(c.Request.Context())
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "market fetched", MarketInfo{
		Address:       h.service.Address(),
		Administrator: h.service.Administrator(),
		ListingFee:    fee,
	})
}

// @Summary      Create listing
// @Description  Escrows the caller's NFT and lists it at price. value must equal the listing fee.
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body createListingRequest true "Listing request"
// @Success      201 {object} response.APIResponse{data=ListingView}
// @Failure      400 {object} response.APIResponse "InvalidPrice or IncorrectPayment"
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse "TransferFailed"
// @Router       /listings [post]
func (h *MarketHandler) createListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	l, err := h.service.CreateListing(c.Request.Context(), accounts.CallerAddress(c), ledger.Address(req.Registry), *req.AssetID, req.Price, req.Value)
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "listing created", newListingView(l))
}

// @Summary      Get listing
// @Description  Returns the listing record for an asset, active or not. Never listed assets return a zero record.
// @Tags         listings
// @Produce      json
// @Param        registry path string true "Asset registry"
// @Param        asset_id path int true "Asset id"
// @Success      200 {object} response.APIResponse{data=ListingView}
// @Failure      400 {object} response.APIResponse
// @Router       /listings/{registry}/{asset_id} [get]
func (h *MarketHandler) getListing(c *gin.Context) {
	registry, assetID, ok := listingParams(c)
	if !ok {
		return
	}

	l, err := h.service.Listing(c.Request.Context(), registry, assetID)
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "listing fetched", newListingView(l))
}

// @Summary      List listings
// @Description  Every asset ever listed, in first-listing order
// @Tags         listings
// @Produce      json
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} response.APIResponse{data=ListingList}
// @Failure      500 {object} response.APIResponse
// @Router       /listings [get]
func (h *MarketHandler) listListings(c *gin.Context) {
	// Unparsable values fall through as zero; Listings applies the defaults.
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	p, err := h.service.Listings(c.Request.Context(), page, limit)
	if err != nil {
		sendLedgerError(c, err)
		return
	}

	items := make([]ListingView, 0, len(p.Items))
	for _, l := range p.Items {
		items = append(items, newListingView(l))
	}
	response.SendAPIResponse(c, http.StatusOK, true, "listings listed", ListingList{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit})
}

// @Summary      Update listing price
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Asset registry"
// @Param        asset_id path int true "Asset id"
// @Param        request body updatePriceRequest true "New price"
// @Success      200 {object} response.APIResponse{data=ListingView}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /listings/{registry}/{asset_id}/price [patch]
func (h *MarketHandler) updatePrice(c *gin.Context) {
	registry, assetID, ok := listingParams(c)
	if !ok {
		return
	}
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	l, err := h.service.UpdatePrice(c.Request.Context(), accounts.CallerAddress(c), registry, assetID, req.Price)
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "price updated", newListingView(l))
}

// @Summary      Delist
// @Description  Returns the escrowed NFT to its seller
// @Tags         listings
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Asset registry"
// @Param        asset_id path int true "Asset id"
// @Success      200 {object} response.APIResponse{data=ListingView}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /listings/{registry}/{asset_id}/delist [post]
func (h *MarketHandler) delist(c *gin.Context) {
	registry, assetID, ok := listingParams(c)
	if !ok {
		return
	}

	l, err := h.service.Delist(c.Request.Context(), accounts.CallerAddress(c), registry, assetID)
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "listing delisted", newListingView(l))
}

// @Summary      Buy
// @Description  Pays the asking price (value) and takes delivery of the NFT. The royalty is paid first, the rest goes to the seller.
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        registry path string true "Asset registry"
// @Param        asset_id path int true "Asset id"
// @Param        request body buyRequest true "Attached payment"
// @Success      200 {object} response.APIResponse{data=ListingView}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /listings/{registry}/{asset_id}/buy [post]
func (h *MarketHandler) buy(c *gin.Context) {
	registry, assetID, ok := listingParams(c)
	if !ok {
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	l, err := h.service.ExecuteSale(c.Request.Context(), accounts.CallerAddress(c), registry, assetID, req.Value)
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "sale executed", newListingView(l))
}

// @Summary      Listing fee
// @Tags         market
// @Produce      json
// @Success      200 {object} response.APIResponse{data=string}
// @Router       /fee [get]
func (h *MarketHandler) getFee(c *gin.Context) {
	fee, err := h.service.ListingFee(c.Request.Context())
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "listing fee fetched", fee)
}

// @Summary      Set listing fee
// @Tags         market
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        request body setFeeRequest true "New fee"
// @Success      200 {object} response.APIResponse{data=string}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /fee [put]
func (h *MarketHandler) setFee(c *gin.Context) {
	var req setFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	if err := h.service.SetListingFee(c.Request.Context(), accounts.CallerAddress(c), req.Fee); err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "listing fee updated", req.Fee)
}

// @Summary      Withdraw fees
// @Description  Pays the marketplace's whole balance to the administrator
// @Tags         market
// @Produce      json
// @Security     BasicAuth
// @Success      200 {object} response.APIResponse{data=Withdrawal}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /withdraw [post]
func (h *MarketHandler) withdraw(c *gin.Context) {
	caller := accounts.CallerAddress(c)
	amount, err := h.service.Withdraw(c.Request.Context(), caller)
	if err != nil {
		sendLedgerError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "fees withdrawn", Withdrawal{To: caller, Amount: amount})
}
