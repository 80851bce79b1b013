package httpgin

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Facility views change at most once per session transition, so their GET
// endpoints are safe to cache briefly.
const (
	facilityMaxAge     = time.Minute
	availabilityMaxAge = 15 * time.Second
)

// respondCached writes v as JSON with a weak ETag over the payload and a
// public max-age derived from maxAge. A matching If-None-Match short-circuits
// to 304 with no body.
func respondCached(c *gin.Context, v any, maxAge time.Duration) {
	body, err := json.Marshal(v)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	sum := sha256.Sum256(body)
	tag := fmt.Sprintf(`W/"%x"`, sum[:16])

	c.Header("ETag", tag)
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))

	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
