package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hemagenda-backend/config"
	"hemagenda-backend/internal/mw"
	"hemagenda-backend/internal/parse"
)

const (
	msgTooManyRequests = "Too many requests. Please slow down."
	msgTooManyBookings = "Too many booking attempts. Please wait a minute and try again."
)

// cepKey files "01001-000" and "01001000" under the same entry.
func cepKey(c *gin.Context) string {
	code, err := parse.CEP(c.Param("cep"))
	if err != nil {
		return c.Request.RequestURI
	}
	return "cep:" + code
}

// NewRouter creates and configures a new Gin router. States and cities are
// not response-cached here: the reference client owns their freshness.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, msgTooManyRequests)
	var bookingLimiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.BookingRateLimitPerMin > 0 && cfg.BookingRateLimitBurst > 0 {
		bookingLimiter = mw.RateLimiter(rate.Limit(cfg.BookingRateLimitPerMin/60), cfg.BookingRateLimitBurst, msgTooManyBookings)
	}

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cepCache := mw.Cache(cache.New(ttl, 2*ttl), mw.CachePolicy{
		TTL:         ttl,
		NotFoundTTL: ttl / 5,
		Key:         cepKey,
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/locations", handler.GetLocations)
		api.PATCH("/locations/:id", handler.UpdateLocation)
		api.DELETE("/locations/:id", handler.DeleteLocation)

		api.GET("/states", handler.GetStates)
		api.GET("/states/:id/cities", handler.GetCities)
		api.GET("/cep/:cep", cepCache, handler.GetAddress)

		api.GET("/donors/suggest", handler.SuggestDonors)
		api.GET("/donors/search", handler.SearchDonor)

		api.POST("/bookings", bookingLimiter, handler.PostBooking)

		api.GET("/confirmations/:id", handler.GetConfirmation)
		api.GET("/confirmations/:id/pdf", handler.GetConfirmationPDF)
		api.GET("/confirmations/:id/jpeg", handler.GetConfirmationJPEG)
		api.GET("/confirmations/:id/share", handler.GetConfirmationShare)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
