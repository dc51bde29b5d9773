package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var ErrCORSBlocked = errors.New("CORS blocked")

const allowedMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// CORSGate admits requests whose Origin header exactly matches an entry of
// the allow-list. Requests without an Origin (server-to-server calls, health
// probes) are always admitted.
type CORSGate struct {
	origins     map[string]struct{}
	credentials bool
}

func NewCORSGate(origins []string, credentials bool) *CORSGate {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[o] = struct{}{}
	}
	return &CORSGate{origins: set, credentials: credentials}
}

func (g *CORSGate) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := g.origins[origin]
	return ok
}

func (g *CORSGate) Stage() Stage {
	return Stage{Name: "cors", Run: g.run}
}

func (g *CORSGate) run(c *gin.Context) Result {
	origin := c.GetHeader("Origin")
	if !g.Allowed(origin) {
		return Fail(KindCORS, fmt.Errorf("%w: %s", ErrCORSBlocked, origin))
	}

	h := c.Writer.Header()
	if origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if g.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}

	// Every admitted OPTIONS request is treated as a preflight.
	if c.Request.Method != http.MethodOptions {
		return Continue()
	}

	h.Set("Access-Control-Allow-Methods", allowedMethods)
	if reqHeaders := c.GetHeader("Access-Control-Request-Headers"); reqHeaders != "" {
		h.Set("Access-Control-Allow-Headers", reqHeaders)
		h.Add("Vary", "Access-Control-Request-Headers")
	}
	h.Set("Content-Length", "0")
	c.AbortWithStatus(http.StatusNoContent)
	return Halt()
}
