package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey renders the authenticated user for Redis keys; "anon" when the
// request carries no identity.
func userKey(c echo.Context) string {
	switch v := c.Get(ContextUserID).(type) {
	case uint64:
		if v != 0 {
			return strconv.FormatUint(v, 10)
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
