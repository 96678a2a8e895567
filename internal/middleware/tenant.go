package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-console/pkg/auth"
	"github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/httputil"
)

const (
	HeaderXTenant  = "X-Tenant"
	ContextTenant  = "tenant"
	ContextSubject = "subject"
)

// TenantMiddleware resolves which tenant a request acts for.
type TenantMiddleware struct {
	verifier      auth.JWTService
	defaultTenant string
}

// NewTenantMiddleware takes the tenant from a bearer token when verifier is set.
// Without a verifier the X-Tenant header is trusted and defaultTenant fills in when
// it is absent.
func NewTenantMiddleware(verifier auth.JWTService, defaultTenant string) *TenantMiddleware {
	return &TenantMiddleware{verifier: verifier, defaultTenant: defaultTenant}
}

func (m *TenantMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.verifier != nil {
			m.fromToken(c)
			return
		}

		tenant := strings.TrimSpace(c.GetHeader(HeaderXTenant))
		if tenant == "" {
			tenant = m.defaultTenant
		}
		if tenant == "" {
			httputil.RespondWithError(c, errors.NewBadRequest("tenant is required", nil))
			return
		}
		c.Set(ContextTenant, tenant)
		c.Next()
	}
}

func (m *TenantMiddleware) fromToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	claims, err := m.verifier.ValidateToken(parts[1])
	if err != nil {
		httputil.RespondWithError(c, errors.Unauthorized(err))
		return
	}

	c.Set(ContextTenant, claims.Tenant)
	c.Set(ContextSubject, claims.Subject)
	c.Next()
}

// Tenant returns the tenant resolved for the request.
func Tenant(c *gin.Context) string {
	return c.GetString(ContextTenant)
}
