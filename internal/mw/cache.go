package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CachePolicy says which GET responses are kept and for how long.
type CachePolicy struct {
	TTL time.Duration
	// NotFoundTTL keeps 404 answers for lookups whose misses are stable.
	// Zero leaves them uncached.
	NotFoundTTL time.Duration
	// Key maps a request to its cache entry. Requests naming the same
	// resource in different spellings should share a key. Nil uses the URI.
	Key func(c *gin.Context) string
}

func (p CachePolicy) ttlFor(status int) (time.Duration, bool) {
	switch {
	case status >= 200 && status < 300:
		return p.TTL, true
	case status == http.StatusNotFound && p.NotFoundTTL > 0:
		return p.NotFoundTTL, true
	default:
		return 0, false
	}
}

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
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

// Cache replays stored GET responses under policy.
func Cache(store *cache.Cache, policy CachePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if policy.Key != nil {
			key = policy.Key(c)
		}
		if resp, found := store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if ttl, ok := policy.ttlFor(blw.Status()); ok {
			store.Set(key, cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			}, ttl)
		}
	}
}
