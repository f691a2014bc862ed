package middleware

import (
	"github.com/gin-gonic/gin"

	"buildplus/internal/core/apperror"
	appctx "buildplus/internal/core/context"
	"buildplus/internal/core/id"
	"buildplus/internal/core/tenant"
	"buildplus/internal/core/tx"
)

// CompanyHeader optionally names the company a request acts for. The token
// is authoritative; the header may only repeat it.
const CompanyHeader = "X-Company-ID"

// Database injects the transaction manager used by repositories.
func Database(txm tx.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tenant.WithTxManager(c.Request.Context(), txm)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Company resolves the company of the authenticated user into the context.
// It must run after Auth.
func Company() gin.HandlerFunc {
	return func(c *gin.Context) {
		var companyID string
		if user := appctx.GetUser(c.Request.Context()); user != nil {
			companyID = user.CompanyID
		}
		if companyID == "" {
			_ = c.Error(apperror.NewTenantRequired())
			c.Abort()
			return
		}

		if header := c.GetHeader(CompanyHeader); header != "" {
			if !sameCompany(header, companyID) {
				_ = c.Error(
					apperror.NewForbidden("company mismatch").
						WithDetail("header_company_id", header),
				)
				c.Abort()
				return
			}
		}

		ctx := tenant.WithCompany(c.Request.Context(), &tenant.Company{ID: companyID})
		c.Request = c.Request.WithContext(ctx)
		c.Set("company_id", companyID)

		c.Next()
	}
}

// sameCompany compares ids as UUIDs when both parse, so letter case and
// formatting differences do not matter.
func sameCompany(a, b string) bool {
	ua, errA := id.Parse(a)
	ub, errB := id.Parse(b)
	if errA == nil && errB == nil {
		return ua == ub
	}
	return a == b
}
