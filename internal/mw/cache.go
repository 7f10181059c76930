package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// FacilityParam is the route parameter cached entries are tagged with.
const FacilityParam = "entity_id"

type cachedResponse struct {
	facility string
	status   int
	headers  http.Header
	body     []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps successful GET responses in memory. Each entry is
// tagged with the facility its route names, if any, so that a change to one
// facility only drops that facility's pages and the cross-facility listings.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Handler serves cached responses and records new ones. Hits carry an
// X-Cache: HIT header.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if v, found := rc.store.Get(key); found {
			cached := v.(cachedResponse)
			for k, h := range cached.headers {
				c.Writer.Header()[k] = h
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() < http.StatusOK || blw.Status() >= http.StatusMultipleChoices {
			return
		}
		rc.store.Set(key, cachedResponse{
			facility: c.Param(FacilityParam),
			status:   blw.Status(),
			headers:  blw.Header().Clone(),
			body:     blw.body.Bytes(),
		}, rc.ttl)
	}
}

// Invalidate drops the entries of one facility together with every entry
// not tied to a facility. An empty id flushes everything.
func (rc *ResponseCache) Invalidate(entityID string) {
	if entityID == "" {
		rc.store.Flush()
		return
	}
	for key, item := range rc.store.Items() {
		cached, ok := item.Object.(cachedResponse)
		if !ok || cached.facility == "" || cached.facility == entityID {
			rc.store.Delete(key)
		}
	}
}

// Flush drops every entry.
func (rc *ResponseCache) Flush() { rc.store.Flush() }

// Len returns the number of cached responses.
func (rc *ResponseCache) Len() int { return rc.store.ItemCount() }
