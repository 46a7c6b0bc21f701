package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/feedlens/ai/metrics"
	"github.com/hrygo/feedlens/internal/profile"
	"github.com/hrygo/feedlens/server/service/feedback"
	"github.com/hrygo/feedlens/store"
)

type APIV1Service struct {
	FeedbackService *FeedbackService

	// Shared Infra
	MarkdownService *MarkdownService
	Profile         *profile.Profile
	Store           *store.Store
	Metrics         *metrics.PrometheusExporter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, feedbackService *feedback.Service, exporter *metrics.PrometheusExporter) *APIV1Service {
	markdownService := NewMarkdownService()
	return &APIV1Service{
		FeedbackService: &FeedbackService{
			Service:         feedbackService,
			MarkdownService: markdownService,
		},
		MarkdownService: markdownService,
		Profile:         profile,
		Store:           store,
		Metrics:         exporter,
	}
}

// RegisterGateway installs the API middleware, error handling and routes on echoServer.
func (s *APIV1Service) RegisterGateway(_ context.Context, echoServer *echo.Echo) error {
	echoServer.HTTPErrorHandler = HTTPErrorHandler
	echoServer.Validator = NewRequestValidator()
	echoServer.JSONSerializer = JSONSerializer{}

	echoServer.Use(
		RequestContext(),
		AccessLog(s.Metrics),
		middleware.Recover(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.Profile.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"*"},
			AllowCredentials: true,
			ExposeHeaders:    []string{headerProcessTime, echo.HeaderXRequestID},
		}),
	)

	apiGroup := echoServer.Group("/api")
	apiGroup.GET("/feedback", s.ListFeedback)
	apiGroup.POST("/feedback", s.CreateFeedback)
	apiGroup.GET("/feedback/stats", s.GetStats)
	apiGroup.GET("/feedback/rss.xml", s.GetFeedbackRSS)
	apiGroup.POST("/feedback/summarize", s.SummarizeFeedback)
	apiGroup.GET("/feedback/:id", s.GetFeedback)
	apiGroup.POST("/feedback/:id/analyze", s.AnalyzeFeedback)
	return nil
}

// ListFeedback handles GET /api/feedback.
func (s *APIV1Service) ListFeedback(c echo.Context) error {
	req := &feedback.ListRequest{
		Page:      1,
		Search:    c.QueryParam("search"),
		Source:    c.QueryParam("source"),
		Sentiment: c.QueryParam("sentiment"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
		Filter:    c.QueryParam("filter"),
	}
	if err := echo.QueryParamsBinder(c).
		Int("page", &req.Page).
		Int("page_size", &req.PageSize).
		BindError(); err != nil {
		return newValidationError(err)
	}

	response, err := s.FeedbackService.ListFeedback(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

// GetFeedback handles GET /api/feedback/:id.
func (s *APIV1Service) GetFeedback(c echo.Context) error {
	id, err := parseFeedbackID(c)
	if err != nil {
		return err
	}
	response, err := s.FeedbackService.GetFeedback(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

// CreateFeedback handles POST /api/feedback.
func (s *APIV1Service) CreateFeedback(c echo.Context) error {
	req := &CreateFeedbackRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}
	response, err := s.FeedbackService.CreateFeedback(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, response)
}

// AnalyzeFeedback handles POST /api/feedback/:id/analyze.
func (s *APIV1Service) AnalyzeFeedback(c echo.Context) error {
	id, err := parseFeedbackID(c)
	if err != nil {
		return err
	}
	response, err := s.FeedbackService.ReanalyzeFeedback(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

// GetStats handles GET /api/feedback/stats.
func (s *APIV1Service) GetStats(c echo.Context) error {
	response, err := s.FeedbackService.GetStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

// SummarizeFeedback handles POST /api/feedback/summarize.
func (s *APIV1Service) SummarizeFeedback(c echo.Context) error {
	req := &SummarizeRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}
	response, err := s.FeedbackService.Summarize(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return newValidationError(err)
	}
	if err := c.Validate(req); err != nil {
		return newValidationError(err)
	}
	return nil
}

func parseFeedbackID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, &validationError{
			fields: []FieldError{{Field: "id", Message: "must be an integer"}},
			cause:  err,
		}
	}
	return id, nil
}
