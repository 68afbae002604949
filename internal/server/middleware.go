package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
)

const HeaderOrg = "X-Org-ID"

// TenantRequired resolves the active tenant from the X-Org-ID header and
// binds it to the request context. Every tenant-scoped route goes through
// here; services refuse to run without a bound tenant.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" {
			AbortWithError(c, invoicedomain.ErrMissingTenant)
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil || orgID == 0 {
			AbortWithError(c, newValidationError("X-Org-ID", "invalid_org_id", "invalid organization id"))
			return
		}

		c.Request = c.Request.WithContext(tenantctx.WithTenantID(c.Request.Context(), orgID))
		c.Next()
	}
}
