// Package api provides the REST API server for wavenotes
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/session"
	"github.com/james-see/wavenotes/pkg/transcribe"
)

// @title WaveNotes API
// @version 1.0
// @description API for transcribing audio to notes, cleaning note sequences and exporting MIDI
// @host localhost:8080
// @BasePath /api/v1

// Config configures the API server
type Config struct {
	Port    int
	Tempo   float64         // export tempo, defaults to 120
	Session session.Options // options for the session behind each job
}

// Server serves the REST API
type Server struct {
	cfg    Config
	router *gin.Engine
	jobs   *JobManager
}

// New creates a server with all routes registered
func New(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Tempo <= 0 {
		cfg.Tempo = converter.DefaultTempo
	}

	s := &Server{
		cfg:    cfg,
		router: gin.Default(),
		jobs:   NewJobManager(cfg.Session, cfg.Tempo),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.GET("/transcribers", listTranscribers)
		v1.GET("/settings/defaults", defaultSettings)
		v1.POST("/clean", s.handleClean)
		v1.POST("/preview", s.handlePreview)
		v1.POST("/notes/midi", s.handleNotesToMIDI)

		jobs := v1.Group("/jobs")
		jobs.POST("", s.handleCreateJob)
		jobs.GET("/:id", s.handleJobStatus)
		jobs.GET("/:id/notes", s.handleJobNotes)
		jobs.PUT("/:id/settings", s.handleJobSettings)
		jobs.GET("/:id/midi", s.handleJobMIDI)
		jobs.GET("/:id/preview", s.handleJobPreview)
		jobs.DELETE("/:id", s.handleDeleteJob)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured port
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%d", s.cfg.Port))
}

// Close stops all jobs and removes their working directories
func (s *Server) Close() {
	s.jobs.Close()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "wavenotes",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats and conversions
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"midi", "wav", "json"},
		"inputs":      []string{"wav", "mp3", "flac", "ogg", "m4a"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listTranscribers godoc
// @Summary List transcribers
// @Description Returns the names of the available transcription backends
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/transcribers [get]
func listTranscribers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"transcribers": transcribe.Available(),
	})
}

// defaultSettings godoc
// @Summary Default settings
// @Description Returns the default post-processing settings
// @Tags info
// @Produce json
// @Success 200 {object} notes.Settings
// @Router /api/v1/settings/defaults [get]
func defaultSettings(c *gin.Context) {
	c.JSON(http.StatusOK, notes.DefaultSettings())
}
