// Package summary memoizes AI summaries of stored articles.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thomaskoefod/newsgrid/internal/apperr"
	"github.com/thomaskoefod/newsgrid/internal/metrics"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

// Summarizer turns text into a summary. *ai.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Store interface {
	GetArticleByID(ctx context.Context, id string) (*models.Article, error)
	GetSummary(ctx context.Context, articleID string) (*models.Summary, error)
	SaveSummary(ctx context.Context, articleID, content string) (*models.Summary, error)
}

// Request describes one summarization. Persist opts into the Summary Store:
// the stored summary is returned when present, and a new one is saved.
type Request struct {
	Text      string
	ArticleID string
	Persist   bool
}

type Result struct {
	Summary   string
	ArticleID string
	// CreatedAt is set only for persisted summaries.
	CreatedAt time.Time
	// Cached reports that no inference call was made.
	Cached bool
}

type Service struct {
	store      Store
	summarizer Summarizer
	logger     *slog.Logger
}

func NewService(store Store, summarizer Summarizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, summarizer: summarizer, logger: logger}
}

// SummarizeArticle is the cache-first path: a stored summary is returned
// as-is, otherwise the article's title and description are summarized and stored.
func (s *Service) SummarizeArticle(ctx context.Context, articleID string) (*Result, error) {
	return s.Summarize(ctx, Request{ArticleID: articleID, Persist: true})
}

// SummarizeText is the stateless path: no lookup and no store write.
func (s *Service) SummarizeText(ctx context.Context, text string) (*Result, error) {
	return s.Summarize(ctx, Request{Text: text})
}

// Summarize runs one request and records its outcome under the "article"
// path when persisted and the "text" path otherwise.
func (s *Service) Summarize(ctx context.Context, req Request) (*Result, error) {
	res, err := s.summarize(ctx, req)
	record(req, res, err)
	return res, err
}

func (s *Service) summarize(ctx context.Context, req Request) (*Result, error) {
	articleID := strings.TrimSpace(req.ArticleID)
	if req.Persist && articleID == "" {
		return nil, apperr.New(apperr.Validation, "articleId is required")
	}

	if req.Persist {
		existing, err := s.store.GetSummary(ctx, articleID)
		if err != nil {
			return nil, fmt.Errorf("looking up summary: %w", err)
		}
		if existing != nil {
			s.logger.Debug("summary cache hit", "article_id", articleID)
			return &Result{
				Summary:   existing.Content,
				ArticleID: articleID,
				CreatedAt: existing.CreatedAt,
				Cached:    true,
			}, nil
		}
	}

	text := strings.TrimSpace(req.Text)
	if articleID != "" {
		article, err := s.store.GetArticleByID(ctx, articleID)
		if err != nil {
			return nil, fmt.Errorf("loading article: %w", err)
		}
		if article == nil {
			return nil, apperr.New(apperr.NotFound, "Article not found")
		}
		if text == "" {
			text = ArticleText(article)
			if text == "" {
				return nil, apperr.New(apperr.Validation, "Article has no content to summarize")
			}
		}
	}
	if text == "" {
		return nil, apperr.New(apperr.Validation, "Text is required")
	}

	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		s.logger.Error("summarization failed", "article_id", articleID, "error", err)
		return nil, err
	}

	if !req.Persist {
		return &Result{Summary: summary, ArticleID: articleID}, nil
	}

	stored, err := s.store.SaveSummary(ctx, articleID, summary)
	if err != nil {
		return nil, fmt.Errorf("saving summary: %w", err)
	}
	s.logger.Info("summary stored", "article_id", articleID, "length", len(stored.Content))

	return &Result{
		Summary:   stored.Content,
		ArticleID: articleID,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// ArticleText builds the summarization input "{title}. {description}" from
// the non-empty parts. It is empty when the article has neither.
func ArticleText(a *models.Article) string {
	title := strings.TrimSpace(a.Title)
	desc := ""
	if a.Description != nil {
		desc = strings.TrimSpace(*a.Description)
	}

	switch {
	case title == "" && desc == "":
		return ""
	case desc == "":
		return title + "."
	case title == "":
		return desc
	default:
		return title + ". " + desc
	}
}

func record(req Request, res *Result, err error) {
	path := "text"
	if req.Persist {
		path = "article"
	}

	switch {
	case err != nil:
		metrics.RecordSummary(path, apperr.KindOf(err).String())
	case res.Cached:
		metrics.RecordSummary(path, "cache_hit")
	default:
		metrics.RecordSummary(path, "generated")
	}
}
