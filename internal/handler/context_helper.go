package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/batch-slot-api/internal/middleware"
	"github.com/noah-isme/batch-slot-api/internal/models"
)

// timezoneHeader carries the caller's detected IANA timezone when the query does not.
const timezoneHeader = "X-Timezone"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// requestTimezone resolves the display zone: ?timezone, then the X-Timezone header, then the
// token's timezone claim. The value is untrusted and validated by the projector.
func requestTimezone(c *gin.Context) string {
	if tz := strings.TrimSpace(c.Query("timezone")); tz != "" {
		return tz
	}
	if tz := strings.TrimSpace(c.GetHeader(timezoneHeader)); tz != "" {
		return tz
	}
	if claims := claimsFromContext(c); claims != nil {
		return strings.TrimSpace(claims.Timezone)
	}
	return ""
}

func timezoneOr(explicit string, c *gin.Context) string {
	if tz := strings.TrimSpace(explicit); tz != "" {
		return tz
	}
	return requestTimezone(c)
}

// fallbackMeta flags responses rendered in the reference zone because the requested one was unknown.
func fallbackMeta(requested, rendered string) map[string]interface{} {
	if requested == "" || requested == rendered {
		return nil
	}
	return map[string]interface{}{
		"timezoneFallback":  true,
		"requestedTimezone": requested,
		"timezone":          rendered,
	}
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}

func paginate[T any](items []T, page, pageSize int) ([]T, *models.Pagination) {
	if pageSize > 100 {
		pageSize = 100
	}
	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
