package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/mw"
	"rlis-backend/internal/store"
)

// Options tunes the router middleware.
type Options struct {
	RateLimit   rate.Limit
	Burst       int
	LimiterIdle time.Duration
	CacheTTL    time.Duration
}

func (o Options) withDefaults() Options {
	if o.RateLimit <= 0 {
		o.RateLimit = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.LimiterIdle <= 0 {
		o.LimiterIdle = 10 * time.Minute
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
	return o
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps, opts Options) *gin.Engine {
	opts = opts.withDefaults()

	r := gin.New()
	r.Use(logger.LogWithWriter(), gin.Recovery())

	handler := NewHandler(d)

	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(opts.RateLimit, opts.Burst, opts.LimiterIdle))

	// Registry events name their facility. Store changes only carry a
	// machine id, so they flush everything.
	responses := mw.NewResponseCache(opts.CacheTTL)
	caching := responses.Handler()
	d.Registry.Subscribe(func(ev inventory.Event) { responses.Invalidate(ev.EntityID) })
	if d.Store != nil {
		d.Store.Subscribe(d.Registry.Owner(), func(store.Change) { responses.Flush() })
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/imports", handler.PostImport)
		api.GET("/categories", handler.GetCategories)

		api.GET("/facilities", caching, handler.GetFacilities)
		api.GET("/facilities/:entity_id/machines", caching, handler.GetFacilityMachines)
		api.POST("/facilities/:entity_id/machines", handler.PostFacilityMachine)
		api.DELETE("/facilities/:entity_id", handler.DeleteFacility)
		api.GET("/archives", caching, handler.GetArchives)

		machines := api.Group("/machines/:id")
		machines.GET("", handler.GetMachine)
		machines.DELETE("", handler.DeleteMachine)
		machines.PATCH("/data", handler.PatchMachineData)
		machines.PUT("/type", handler.PutMachineType)
		machines.PUT("/no-data", handler.PutNoData)
		machines.DELETE("/no-data", handler.DeleteNoData)
		machines.POST("/complete", handler.PostComplete)
		machines.DELETE("/complete", handler.DeleteComplete)
		machines.GET("/report", handler.GetReport)
		machines.GET("/report/document", handler.GetReportDocument)
		machines.POST("/extract", handler.PostExtract)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
