package accounts

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftmarket/pkg/ledger"
	"nftmarket/pkg/response"
)

const callerKey = "accounts.caller"

// BasicAuth authenticates the request with HTTP Basic credentials (email and
// password) and stores the account as the caller.
func BasicAuth(service AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="nftmarket"`)
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
			c.Abort()
			return
		}

		a, err := service.Authenticate(c.Request.Context(), email, password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				c.Header("WWW-Authenticate", `Basic realm="nftmarket"`)
				response.SendAPIResponse(c, http.StatusUnauthorized, false, err.Error(), nil)
				c.Abort()
				return
			}
			zap.L().With(zap.Error(err)).Error("Accounts: authentication failed")
			response.SendAPIResponse(c, http.StatusInternalServerError, false, "authentication failed", nil)
			c.Abort()
			return
		}

		SetCaller(c, a)
		c.Next()
	}
}

// RequireAdmin rejects callers that are not administrators. It must run
// after BasicAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := CallerFrom(c)
		if !ok || !a.IsAdmin() {
			response.SendAPIResponse(c, http.StatusForbidden, false, "administrator only", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetCaller(c *gin.Context, a Account) {
	c.Set(callerKey, a)
}

func CallerFrom(c *gin.Context) (Account, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return Account{}, false
	}
	a, ok := v.(Account)
	return a, ok
}

// CallerAddress is the ledger party of the authenticated caller, or
// ledger.NoParty when there is none.
func CallerAddress(c *gin.Context) ledger.Address {
	a, ok := CallerFrom(c)
	if !ok {
		return ledger.NoParty
	}
	return a.Address
}
