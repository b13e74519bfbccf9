package api

import (
	"net/http"

	"github.com/chronobill/chronobill/internal/api/cron"
	v1 "github.com/chronobill/chronobill/internal/api/v1"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Plan      *v1.PlanHandler
	Invoice   *v1.InvoiceHandler
	Scheduler *cron.SchedulerHandler
}

func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.RequestLogger(log),
		middleware.ErrorHandler(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	// cron routes for external schedulers
	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/scheduler/run", handlers.Scheduler.RunOnce)
	}

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Plan routes
	plans := router.Group("/plans")
	{
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/due", handlers.Plan.ListDuePlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.POST("/:id/pause", handlers.Plan.PausePlan)
		plans.POST("/:id/resume", handlers.Plan.ResumePlan)
		plans.POST("/:id/cancel", handlers.Plan.CancelPlan)
	}

	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
	}
}
