package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/medisupply/video-processor/pkg/apiserver/handlers"
	"github.com/medisupply/video-processor/pkg/apiserver/middleware"
	"github.com/medisupply/video-processor/pkg/config"
)

type Server struct {
	router    *gin.Engine
	processor handlers.Processor
	cfg       *config.Config
	logger    *zap.Logger
}

func NewServer(processor handlers.Processor, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	videoHandler := handlers.NewVideoHandler(s.processor, s.logger)

	files := r.Group("/files-procesor")
	if s.cfg.Auth.PushSecret != "" {
		files.Use(middleware.Auth(s.cfg.Auth.PushSecret))
	}
	files.POST("/video", videoHandler.Process)

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
