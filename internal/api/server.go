package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thomaskoefod/newsgrid/internal/apperr"
	"github.com/thomaskoefod/newsgrid/internal/database"
	"github.com/thomaskoefod/newsgrid/internal/summary"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

// ArticleReader is the read side of the article and summary stores.
type ArticleReader interface {
	ListArticles(ctx context.Context, filter database.ArticleFilter) ([]models.Article, error)
	GetArticleByID(ctx context.Context, id string) (*models.Article, error)
	GetSummary(ctx context.Context, articleID string) (*models.Summary, error)
	CountArticles(ctx context.Context) (int, error)
}

// Ingester runs one ingestion pass. *feed.Fetcher satisfies it.
type Ingester interface {
	FetchAllFeeds(ctx context.Context) (int, error)
}

// Summarizer is implemented by *summary.Service.
type Summarizer interface {
	SummarizeArticle(ctx context.Context, articleID string) (*summary.Result, error)
	Summarize(ctx context.Context, req summary.Request) (*summary.Result, error)
}

type Deps struct {
	Articles   ArticleReader
	Ingester   Ingester
	Summarizer Summarizer
	Logger     *slog.Logger
	// Revision is echoed by the health endpoint for display only.
	Revision string
}

// NewRouter constructs an Echo engine with registered routes.
func NewRouter(deps Deps) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(deps.Logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/healthz" || path == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			deps.Logger.InfoContext(c.Request().Context(), "HTTP request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	h := &handler{deps: deps}
	RegisterArticleRoutes(e, h)
	RegisterIngestRoutes(e, h)
	RegisterSummaryRoutes(e, h)
	RegisterHealthRoutes(e, h)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

type handler struct {
	deps Deps
}

func (h *handler) logger() *slog.Logger {
	return h.deps.Logger
}

// failure writes {success:false, error} with the status derived from err.
// Unclassified errors are logged and reported with the fallback message.
func (h *handler) failure(c echo.Context, err error, fallback string) error {
	status := apperr.HTTPStatus(err)
	if apperr.KindOf(err) == apperr.Internal {
		h.logger().ErrorContext(c.Request().Context(), fallback,
			"path", c.Path(), "error", err)
	}
	return c.JSON(status, echo.Map{
		"success": false,
		"error":   apperr.Message(err, fallback),
	})
}

func noStore(c echo.Context) {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
}

// errorHandler renders echo's own errors (404 routes, bad methods) in the
// same {success, error} shape as handler failures.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, echo.Map{"success": false, "error": message})
		}
		if writeErr != nil {
			logger.Error("writing error response", "error", writeErr)
		}
	}
}
