package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/thomaskoefod/newsgrid/internal/apperr"
	"github.com/thomaskoefod/newsgrid/internal/database"
	"github.com/thomaskoefod/newsgrid/internal/summary"
)

// isoMillis matches the millisecond UTC timestamps clients already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// RegisterArticleRoutes registers article listing and detail routes.
func RegisterArticleRoutes(e *echo.Echo, h *handler) {
	e.GET("/api/articles", h.listArticles)
	e.GET("/api/articles/:id", h.getArticle)
}

// RegisterIngestRoutes registers the ingestion trigger for both GET and POST.
func RegisterIngestRoutes(e *echo.Echo, h *handler) {
	e.GET("/api/fetch-news", h.fetchNews)
	e.POST("/api/fetch-news", h.fetchNews)
}

// RegisterSummaryRoutes registers the cache-first and stateless summarization routes.
func RegisterSummaryRoutes(e *echo.Echo, h *handler) {
	e.GET("/api/rewrite", h.rewriteInfo)
	e.POST("/api/rewrite", h.rewrite)
	e.POST("/api/summarize", h.summarize)
}

func RegisterHealthRoutes(e *echo.Echo, h *handler) {
	e.GET("/healthz", h.health)
}

// GET /api/articles?category=&search=
func (h *handler) listArticles(c echo.Context) error {
	noStore(c)

	filter := database.ArticleFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}

	articles, err := h.deps.Articles.ListArticles(c.Request().Context(), filter)
	if err != nil {
		return h.failure(c, err, "Failed to fetch articles")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"articles": articles,
	})
}

// GET /api/articles/:id returns the article and its stored summary, if any.
func (h *handler) getArticle(c echo.Context) error {
	noStore(c)
	ctx := c.Request().Context()
	id := c.Param("id")

	article, err := h.deps.Articles.GetArticleByID(ctx, id)
	if err != nil {
		return h.failure(c, err, "Failed to fetch article")
	}
	if article == nil {
		return h.failure(c, apperr.New(apperr.NotFound, "Article not found"), "")
	}

	resp := echo.Map{"success": true, "article": article}

	stored, err := h.deps.Articles.GetSummary(ctx, id)
	if err != nil {
		return h.failure(c, err, "Failed to fetch article")
	}
	if stored != nil {
		resp["summary"] = stored.Content
		resp["timestamp"] = stored.CreatedAt.UTC().Format(isoMillis)
	}

	return c.JSON(http.StatusOK, resp)
}

// GET|POST /api/fetch-news
func (h *handler) fetchNews(c echo.Context) error {
	noStore(c)

	inserted, err := h.deps.Ingester.FetchAllFeeds(c.Request().Context())
	if err != nil {
		return h.failure(c, err, "Failed to fetch news")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"inserted": inserted,
	})
}

func (h *handler) rewriteInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "API /api/rewrite is working!",
		"methods": []string{http.MethodPost},
	})
}

type RewriteRequest struct {
	ArticleID string `json:"articleId"`
}

type RewriteResponse struct {
	Success          bool   `json:"success"`
	ArticleID        string `json:"articleId"`
	Summary          string `json:"summary"`
	RewrittenContent string `json:"rewrittenContent"`
	Timestamp        string `json:"timestamp"`
}

// POST /api/rewrite: cache-first summarization bound to a stored article.
func (h *handler) rewrite(c echo.Context) error {
	noStore(c)

	var req RewriteRequest
	if err := c.Bind(&req); err != nil {
		return h.failure(c, apperr.Wrap(apperr.Validation, "Invalid request body", err), "")
	}

	res, err := h.deps.Summarizer.SummarizeArticle(c.Request().Context(), req.ArticleID)
	if err != nil {
		return h.failure(c, err, "Internal server error")
	}

	return c.JSON(http.StatusOK, RewriteResponse{
		Success:          true,
		ArticleID:        res.ArticleID,
		Summary:          res.Summary,
		RewrittenContent: res.Summary,
		Timestamp:        formatTime(res.CreatedAt),
	})
}

// SummarizeRequest is stateless by default. Persist with ArticleID opts into
// the cache-first path.
type SummarizeRequest struct {
	Text      string `json:"text"`
	ArticleID string `json:"articleId"`
	Persist   bool   `json:"persist"`
}

type SummarizeResponse struct {
	Summary   string `json:"summary"`
	ArticleID string `json:"articleId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// POST /api/summarize
func (h *handler) summarize(c echo.Context) error {
	noStore(c)

	var req SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return h.failure(c, apperr.Wrap(apperr.Validation, "Text is required", err), "")
	}

	sreq := summary.Request{Text: req.Text}
	if req.Persist {
		sreq.ArticleID = req.ArticleID
		sreq.Persist = true
	}

	res, err := h.deps.Summarizer.Summarize(c.Request().Context(), sreq)
	if err != nil {
		return h.failure(c, err, "Internal server error")
	}

	resp := SummarizeResponse{Summary: res.Summary}
	if req.Persist {
		resp.ArticleID = res.ArticleID
		resp.Timestamp = formatTime(res.CreatedAt)
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /healthz
func (h *handler) health(c echo.Context) error {
	count, err := h.deps.Articles.CountArticles(c.Request().Context())
	if err != nil {
		h.logger().Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"revision": h.deps.Revision,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"articles": count,
		"revision": h.deps.Revision,
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoMillis)
}
