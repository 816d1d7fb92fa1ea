package echoServer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"textbookindent/app/echoServer/jwtx"
)

// Capability is a closed set of things a route may require. Roles map to
// capabilities here, at the boundary; services never look at roles.
type Capability string

const (
	CapManageCatalog Capability = "manage_catalog"
	CapCreateIndent  Capability = "create_indent"
	CapIssueIndent   Capability = "issue_indent"
	CapRecordReturn  Capability = "record_return"
	CapRecordPayment Capability = "record_payment"
	CapViewReports   Capability = "view_reports"
)

var roleCaps = map[string][]Capability{
	"admin":      {CapManageCatalog, CapCreateIndent, CapIssueIndent, CapRecordReturn, CapRecordPayment, CapViewReports},
	"librarian":  {CapCreateIndent, CapIssueIndent, CapRecordReturn, CapViewReports},
	"accountant": {CapRecordPayment, CapViewReports},
	"clerk":      {CapViewReports},
}

func hasCapability(role string, cap Capability) bool {
	for _, c := range roleCaps[role] {
		if c == cap {
			return true
		}
	}
	return false
}

// Require guards a route with one capability.
func Require(cap Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, err := jwtx.RoleFromContext(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			if !hasCapability(role, cap) {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
			}
			return next(c)
		}
	}
}
