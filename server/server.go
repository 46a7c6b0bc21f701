package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/feedlens/ai"
	"github.com/hrygo/feedlens/ai/core/llm"
	"github.com/hrygo/feedlens/ai/metrics"
	"github.com/hrygo/feedlens/ai/sentiment"
	"github.com/hrygo/feedlens/ai/summary"
	"github.com/hrygo/feedlens/internal/profile"
	apiv1 "github.com/hrygo/feedlens/server/router/api/v1"
	"github.com/hrygo/feedlens/server/service/feedback"
	"github.com/hrygo/feedlens/store"
)

const serviceName = "feedlens"

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Metrics *metrics.PrometheusExporter

	echoServer *echo.Echo
	llm        llm.Service
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
		Metrics: metrics.NewPrometheusExporter(metrics.DefaultConfig()),
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	s.echoServer = echoServer

	aiConfig := ai.NewConfigFromProfile(profile)
	if !aiConfig.Enabled {
		slog.Info("AI features disabled, no LLM API key configured", "provider", profile.LLMProvider)
	} else if err := aiConfig.Validate(); err != nil {
		slog.Warn("AI config validation failed, using keyword classification only", "error", err)
	} else {
		llmService, err := llm.NewService(aiConfig.LLM.ServiceConfig(s.Metrics))
		if err != nil {
			slog.Warn("Failed to initialize LLM service, using keyword classification only",
				"provider", aiConfig.LLM.Provider,
				"error", err,
			)
		} else {
			slog.Info("LLM service initialized",
				"provider", aiConfig.LLM.Provider,
				"model", aiConfig.LLM.Model,
			)
			s.llm = llmService
		}
	}

	feedbackService := feedback.NewService(
		store,
		sentiment.NewClassifier(s.llm, s.Metrics),
		summary.NewSummarizer(s.llm, profile.MaxSummaryItems, s.Metrics),
		feedback.Config{
			DefaultPageSize: profile.DefaultPageSize,
			MaxPageSize:     profile.MaxPageSize,
			MaxSummaryItems: profile.MaxSummaryItems,
			ValidSources:    profile.ValidSources,
		},
		s.Metrics,
	)

	apiV1Service := apiv1.NewAPIV1Service(profile, store, feedbackService, s.Metrics)
	if err := apiV1Service.RegisterGateway(ctx, echoServer); err != nil {
		return nil, errors.Wrap(err, "failed to register gateway")
	}

	echoServer.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": serviceName,
			"version": profile.Version,
			"status":  "running",
		})
	})
	echoServer.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": serviceName,
		})
	})
	echoServer.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	if s.llm != nil {
		// Best effort: a failed warmup only costs first-request latency.
		go func() {
			warmupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			s.llm.Warmup(warmupCtx)
		}()
	}

	go func() {
		s.echoServer.Listener = listener
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	// Close database connection.
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server stopped properly")
}
