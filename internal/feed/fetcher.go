package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/thomaskoefod/newsgrid/internal/metrics"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

// FeedParser fetches and parses a remote feed. *gofeed.Parser satisfies it.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// ArticleStore persists articles, keyed by URL.
type ArticleStore interface {
	InsertArticleIfAbsent(ctx context.Context, article *models.Article) (bool, error)
}

type Fetcher struct {
	store   ArticleStore
	parser  FeedParser
	sources []models.FeedSource
	images  ImageExtractor
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Fetcher)

// WithParser replaces the gofeed parser.
func WithParser(p FeedParser) Option {
	return func(f *Fetcher) { f.parser = p }
}

// WithImageExtractor replaces the <img> sniffer used when an entry has no enclosure.
func WithImageExtractor(e ImageExtractor) Option {
	return func(f *Fetcher) { f.images = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewParser builds a gofeed parser with a bounded HTTP client.
func NewParser(timeout time.Duration, userAgent string) *gofeed.Parser {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = userAgent
	return p
}

func NewFetcher(store ArticleStore, sources []models.FeedSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:   store,
		parser:  gofeed.NewParser(),
		sources: sources,
		images:  FirstImageSrc,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Sources returns the feeds this fetcher ingests.
func (f *Fetcher) Sources() []models.FeedSource {
	return f.sources
}

// FetchFeed fetches and parses an RSS feed
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// FetchAndStore fetches a feed and stores new articles in the database.
// On a store failure the count of rows inserted so far is returned with the error.
func (f *Fetcher) FetchAndStore(ctx context.Context, src models.FeedSource) (int, error) {
	rssFeed, err := f.FetchFeed(ctx, src.URL)
	if err != nil {
		return 0, err
	}

	newArticles := 0
	for _, item := range rssFeed.Items {
		article := f.convertToArticle(item, src.Source)
		if article == nil {
			continue
		}

		inserted, err := f.store.InsertArticleIfAbsent(ctx, article)
		if err != nil {
			return newArticles, fmt.Errorf("storing %s: %w", article.URL, err)
		}
		if inserted {
			newArticles++
		}
	}

	return newArticles, nil
}

// FetchAllFeeds ingests every configured feed in order and returns the total
// number of new articles. A failing feed is logged and skipped.
func (f *Fetcher) FetchAllFeeds(ctx context.Context) (int, error) {
	totalNew := 0
	for _, src := range f.sources {
		if err := ctx.Err(); err != nil {
			return totalNew, err
		}

		start := time.Now()
		count, err := f.FetchAndStore(ctx, src)
		totalNew += count
		metrics.RecordIngested(src.Source, count)
		if err != nil {
			// Log error but continue with other feeds
			metrics.RecordFeedError(src.Source)
			f.logger.Error("feed ingestion failed",
				"source", src.Source, "url", src.URL, "inserted", count, "error", err)
			continue
		}
		f.logger.Info("feed ingested",
			"source", src.Source, "inserted", count, "duration", time.Since(start))
	}

	return totalNew, nil
}

// convertToArticle converts a gofeed.Item to our Article model. Items without
// a link have no dedup key and are dropped.
func (f *Fetcher) convertToArticle(item *gofeed.Item, source string) *models.Article {
	if item == nil || item.Link == "" {
		return nil
	}

	var publishedAt *time.Time
	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		publishedAt = &t
	}

	return &models.Article{
		URL:         item.Link,
		Title:       item.Title,
		Description: description(item),
		ImageURL:    imageURL(item, f.images),
		Source:      source,
		PublishedAt: publishedAt,
		CreatedAt:   f.now(),
	}
}
