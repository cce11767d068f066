package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "bizdesk/internal/core/context"
)

// HeaderOperator names the dashboard user performing the request.
const HeaderOperator = "X-Operator"

const maxOperatorLen = 64

// Operator copies the X-Operator header into the request context.
// The value only feeds audit fields and logs; it grants nothing.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := strings.TrimSpace(c.GetHeader(HeaderOperator))
		if len(op) > maxOperatorLen {
			op = op[:maxOperatorLen]
		}
		if op != "" {
			c.Request = c.Request.WithContext(appctx.WithOperator(c.Request.Context(), op))
			c.Set("operator", op)
		}
		c.Next()
	}
}
