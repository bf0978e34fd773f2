// Package httpapi exposes the inventory service over a JSON HTTP API.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"labstock/internal/core"
	"labstock/internal/logger"
	"labstock/internal/report"
)

// ReportScheduler queues report generation and serves finished artifacts.
type ReportScheduler interface {
	Enqueue(ctx context.Context, input report.Input) (report.Job, error)
	Get(id string) (report.Job, bool)
	Open(ctx context.Context, id string) (report.Job, io.ReadCloser, error)
}

// Options configures optional router collaborators.
type Options struct {
	AllowOrigins []string
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	Reports ReportScheduler
}

// Handler binds HTTP requests to service calls.
type Handler struct {
	svc     *core.Service
	reports ReportScheduler
}

// NewRouter installs middleware and routes on g.
func NewRouter(g *gin.Engine, svc *core.Service, opts Options) *Handler {
	h := &Handler{svc: svc, reports: opts.Reports}
	installMiddleware(g, opts)
	h.installURL(g, opts)
	return h
}

func installMiddleware(g *gin.Engine, opts Options) {
	g.ContextWithFallback = true
	corsConf := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 || (len(opts.AllowOrigins) == 1 && opts.AllowOrigins[0] == "*") {
		corsConf.AllowAllOrigins = true
	} else {
		corsConf.AllowOrigins = opts.AllowOrigins
	}
	corsConf.AllowHeaders = append(corsConf.AllowHeaders, "X-Request-ID")
	g.Use(cors.New(corsConf))
	g.Use(requestLog())
}

// requestLog tags the request context with an id and logs one line per request.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		started := time.Now()
		c.Next()
		logger.Infof(c.Request.Context(), "%s %s %d %s", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(started))
	}
}

func (h *Handler) installURL(g *gin.Engine, opts Options) {
	api := g.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := api.Group("/v1")
	{
		chem := v1.Group("/chemicals")
		chem.GET("", h.listChemicals)
		chem.POST("", h.addChemical)
		chem.GET("/:id", h.getChemical)
		chem.PUT("/:id", h.updateChemical)
		chem.POST("/:id/units", h.openUnit)
		chem.PUT("/:id/units/:unitID", h.setUnitLevel)
		chem.DELETE("/:id/units/:unitID", h.closeUnit)
	}
	{
		v1.GET("/transactions", h.listTransactions)
		v1.POST("/transactions", h.recordTransaction)
	}
	{
		users := v1.Group("/users")
		users.GET("", h.listUsers)
		users.POST("", h.addUser)
		users.GET("/current", h.currentUser)
		users.PUT("/current", h.setCurrentUser)
		users.DELETE("/:id", h.deleteUser)
	}
	v1.GET("/reorder", h.reorder)
	v1.GET("/dashboard", h.dashboard)
	if h.reports != nil {
		reports := v1.Group("/reports")
		reports.POST("", h.createReport)
		reports.GET("/:id", h.getReport)
		reports.GET("/:id/content", h.reportContent)
	}
	if opts.Metrics != nil {
		g.GET("/metrics", gin.WrapH(opts.Metrics))
	}
}
