package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/config"
	handlers "github.com/aegis-sentinel/aegis/pkg/handlers/http"
	"github.com/aegis-sentinel/aegis/pkg/middleware"
)

type (
	AegisServerDI struct {
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
		Config              *config.Config
		Logger              *logrus.Logger
	}
	AegisServer struct {
		*BaseServer
		middlewareTransport middleware.Transport
		handlerTransport    handlers.HandlerTransport
	}
)

func NewAegisServer(di AegisServerDI) *AegisServer {
	return &AegisServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}
}

func (s *AegisServer) Run() error {
	s.setupRoutes()
	s.setupHealthCheck()
	s.setupMetricsEndpoint()

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("Starting aegis server")
	return s.Router.Listen(addr)
}

func (s *AegisServer) setupRoutes() {
	s.Router.Use(s.middlewareTransport.PanicRecoverMiddleware.Middleware())
	s.Router.Use(s.middlewareTransport.CORSMiddleware.Middleware())
	s.Router.Use(s.middlewareTransport.MetricsMiddleware.Middleware())

	v1 := s.Router.Group("/api/v1")
	{
		// Scan surfaces admit guests with a reduced rate budget.
		scans := v1.Group("",
			s.middlewareTransport.AuthMiddleware.Middleware(),
			s.middlewareTransport.RateLimitMiddleware.Middleware(),
		)
		{
			scans.Post("/analyze-prompt", s.handlerTransport.AnalyzePromptHandler.Handle)
			scans.Post("/scan-file", s.handlerTransport.ScanFileHandler.Handle)
			scans.Post("/scan-website", s.handlerTransport.ScanWebsiteHandler.Handle)
		}

		// Dashboard feeds require a verified subject.
		feeds := v1.Group("", s.middlewareTransport.AuthMiddleware.Required())
		{
			feeds.Get("/scan-logs", s.handlerTransport.ListScanLogsHandler.Handle)
			feeds.Get("/scan-history", s.handlerTransport.ListScanHistoryHandler.Handle)
		}

		v1.Get("/version", s.handlerTransport.GetVersionHandler.Handle)
	}
}

func (s *AegisServer) Shutdown() error {
	return s.Router.Shutdown()
}
