package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Denis-Joly/QuickScript/internal/config"
	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/export"
	"github.com/Denis-Joly/QuickScript/internal/jobs"
	"github.com/Denis-Joly/QuickScript/internal/storage"
)

// Server exposes the job API over HTTP.
type Server struct {
	cfg         config.Config
	store       *jobs.Store
	scheduler   *jobs.Scheduler
	renderer    *export.Renderer
	workspace   *storage.Workspace
	diagnostics domain.DiagnosticReport
}

// New builds the HTTP layer over the assembled services.
func New(cfg config.Config, store *jobs.Store, scheduler *jobs.Scheduler, renderer *export.Renderer, workspace *storage.Workspace, diagnostics domain.DiagnosticReport) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		scheduler:   scheduler,
		renderer:    renderer,
		workspace:   workspace,
		diagnostics: diagnostics,
	}
}

// Engine registers all routes and returns the gin engine.
func (s *Server) Engine() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20

	r.GET("/", s.handleRoot)
	r.POST("/process/file", s.handleProcessFile)
	r.POST("/process/url", s.handleProcessURL)
	r.GET("/status/:job_id", s.handleStatus)
	r.GET("/download/:job_id/:format", s.handleDownload)
	r.DELETE("/job/:job_id", s.handleDelete)
	r.GET("/diagnostics", s.handleDiagnostics)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
