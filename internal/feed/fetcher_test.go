package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomaskoefod/newsgrid/internal/database"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

const feedA = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Feed A</title>
<item>
  <title>With enclosure</title>
  <link>https://example.com/1</link>
  <description><![CDATA[<a href="https://example.com/1"><img src="https://img.example.com/inline.jpg" /></a>Tin &amp; tức]]></description>
  <enclosure url="https://img.example.com/enc.jpg" type="image/jpeg" length="1"/>
  <pubDate>Mon, 02 Jun 2025 10:00:00 +0700</pubDate>
</item>
<item>
  <title>No link</title>
  <description>orphan entry</description>
</item>
<item>
  <title>Inline image</title>
  <link>https://example.com/2</link>
  <description><![CDATA[<img width="1" src="https://img.example.com/2.jpg">Body   text]]></description>
</item>
</channel>
</rss>`

const feedB = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Feed B</title>
<item>
  <title>Fresh</title>
  <link>https://example.com/3</link>
  <description>Plain</description>
</item>
<item>
  <title>Shared</title>
  <link>https://example.com/1</link>
  <description>Same URL as feed A</description>
</item>
</channel>
</rss>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a.rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, feedA)
	})
	mux.HandleFunc("/b.rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, feedB)
	})
	mux.HandleFunc("/broken.rss", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFetchAllFeeds_InsertsAndDedupes(t *testing.T) {
	srv := newFeedServer(t)
	db := newTestDB(t)
	ctx := context.Background()

	sources := []models.FeedSource{
		{URL: srv.URL + "/a.rss", Source: "A"},
		{URL: srv.URL + "/broken.rss", Source: "Broken"},
		{URL: srv.URL + "/b.rss", Source: "B"},
	}
	f := NewFetcher(db, sources, WithLogger(quietLogger()))

	inserted, err := f.FetchAllFeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted, "two from A, one new from B, broken feed skipped")

	first, err := db.GetArticleByURL(ctx, "https://example.com/1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "A", first.Source, "later feed must not overwrite an existing article")
	assert.Equal(t, "With enclosure", first.Title)
	require.NotNil(t, first.ImageURL)
	assert.Equal(t, "https://img.example.com/enc.jpg", *first.ImageURL)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Tin & tức", *first.Description)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)))
	assert.Nil(t, first.Category)

	second, err := db.GetArticleByURL(ctx, "https://example.com/2")
	require.NoError(t, err)
	require.NotNil(t, second)
	require.NotNil(t, second.ImageURL)
	assert.Equal(t, "https://img.example.com/2.jpg", *second.ImageURL)
	assert.Equal(t, "Body text", *second.Description)
	assert.Nil(t, second.PublishedAt)

	count, err := db.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "entry without link is never stored")

	again, err := f.FetchAllFeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestFetchAndStore_OneNewOneExisting(t *testing.T) {
	srv := newFeedServer(t)
	db := newTestDB(t)
	ctx := context.Background()

	existing := &models.Article{URL: "https://example.com/1", Title: "Kept", Source: "Manual"}
	_, err := db.InsertArticleIfAbsent(ctx, existing)
	require.NoError(t, err)

	f := NewFetcher(db, nil, WithLogger(quietLogger()))
	inserted, err := f.FetchAndStore(ctx, models.FeedSource{URL: srv.URL + "/b.rss", Source: "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	kept, err := db.GetArticleByURL(ctx, "https://example.com/1")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, kept.ID)
	assert.Equal(t, "Kept", kept.Title)
	assert.Equal(t, "Manual", kept.Source)
	assert.Nil(t, kept.Description)
}

type fakeParser struct {
	feeds map[string]*gofeed.Feed
	calls []string
}

func (p *fakeParser) ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error) {
	p.calls = append(p.calls, feedURL)
	feed, ok := p.feeds[feedURL]
	if !ok {
		return nil, errors.New("no such feed")
	}
	return feed, nil
}

type flakyStore struct {
	failOn string
	stored map[string]bool
}

func (s *flakyStore) InsertArticleIfAbsent(ctx context.Context, a *models.Article) (bool, error) {
	if a.URL == s.failOn {
		return false, errors.New("disk full")
	}
	if s.stored[a.URL] {
		return false, nil
	}
	s.stored[a.URL] = true
	return true, nil
}

func TestFetchAllFeeds_StoreFailureKeepsPartialCount(t *testing.T) {
	parser := &fakeParser{feeds: map[string]*gofeed.Feed{
		"one": {Items: []*gofeed.Item{{Link: "u1"}, {Link: "bad"}, {Link: "u2"}}},
		"two": {Items: []*gofeed.Item{{Link: "u3"}}},
	}}
	store := &flakyStore{failOn: "bad", stored: map[string]bool{}}

	f := NewFetcher(store, []models.FeedSource{
		{URL: "one", Source: "One"},
		{URL: "missing", Source: "Missing"},
		{URL: "two", Source: "Two"},
	}, WithParser(parser), WithLogger(quietLogger()))

	inserted, err := f.FetchAllFeeds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, []string{"one", "missing", "two"}, parser.calls)
	assert.True(t, store.stored["u1"])
	assert.False(t, store.stored["u2"], "rest of a failing feed is skipped")
	assert.True(t, store.stored["u3"])
}

func TestFetchAllFeeds_CanceledContext(t *testing.T) {
	parser := &fakeParser{feeds: map[string]*gofeed.Feed{}}
	f := NewFetcher(&flakyStore{stored: map[string]bool{}},
		[]models.FeedSource{{URL: "one", Source: "One"}},
		WithParser(parser), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchAllFeeds(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, parser.calls)
}

func TestWithImageExtractor(t *testing.T) {
	var calls atomic.Int32
	f := NewFetcher(nil, nil, WithImageExtractor(func(string) string {
		calls.Add(1)
		return "https://img.example.com/custom.png"
	}))

	a := f.convertToArticle(&gofeed.Item{Link: "https://example.com/x", Description: "<p>hi</p>"}, "S")
	require.NotNil(t, a)
	require.NotNil(t, a.ImageURL)
	assert.Equal(t, "https://img.example.com/custom.png", *a.ImageURL)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewParser(t *testing.T) {
	p := NewParser(5*time.Second, "newsgrid-test")
	require.NotNil(t, p.Client)
	assert.Equal(t, 5*time.Second, p.Client.Timeout)
	assert.Equal(t, "newsgrid-test", p.UserAgent)
}
