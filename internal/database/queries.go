package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

const articleColumns = "id, url, title, description, image_url, source, category, published_at, created_at"

// ArticleFilter narrows ListArticles. Zero values match everything.
type ArticleFilter struct {
	Category string
	// Search matches title or description, case-insensitively.
	Search string
}

// InsertArticleIfAbsent inserts the article unless one with the same URL exists.
// It reports whether a row was created; an existing row is left untouched.
func (db *DB) InsertArticleIfAbsent(ctx context.Context, article *models.Article) (bool, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}

	var publishedAt any
	if article.PublishedAt != nil {
		publishedAt = article.PublishedAt.UTC()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		article.ID, article.URL, article.Title, article.Description, article.ImageURL,
		article.Source, article.Category, publishedAt, article.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting article: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return n == 1, nil
}

// GetArticleByID retrieves a single article, or nil if absent
func (db *DB) GetArticleByID(ctx context.Context, id string) (*models.Article, error) {
	row := db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying article: %w", err)
	}
	return article, nil
}

// GetArticleByURL retrieves the article stored under url, or nil if absent
func (db *DB) GetArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	row := db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE url = ?", url)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying article by url: %w", err)
	}
	return article, nil
}

// ListArticles returns articles newest first. Articles without a publish date come last.
func (db *DB) ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	query := "SELECT " + articleColumns + " FROM articles"
	var args []any
	if filter.Category != "" {
		query += " WHERE category = ?"
		args = append(args, filter.Category)
	}
	query += " ORDER BY published_at IS NULL, published_at DESC, created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	// SQLite's LIKE only folds ASCII, so search is applied here.
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	articles := []models.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		if search != "" && !matches(article, search) {
			continue
		}
		articles = append(articles, *article)
	}

	return articles, rows.Err()
}

// CountArticles returns the number of stored articles
func (db *DB) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

// GetSummary retrieves the stored summary for an article, or nil if none exists
func (db *DB) GetSummary(ctx context.Context, articleID string) (*models.Summary, error) {
	var s models.Summary
	err := db.QueryRowContext(ctx,
		"SELECT id, article_id, content, created_at FROM rewrites WHERE article_id = ?",
		articleID,
	).Scan(&s.ID, &s.ArticleID, &s.Content, &s.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}

	return &s, nil
}

// SaveSummary stores content for articleID unless a summary already exists,
// and returns whichever row is stored. Concurrent callers all observe the
// first writer's content.
func (db *DB) SaveSummary(ctx context.Context, articleID, content string) (*models.Summary, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rewrites (id, article_id, content, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(article_id) DO NOTHING`,
		uuid.NewString(), articleID, content, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting summary: %w", err)
	}

	var s models.Summary
	err = tx.QueryRowContext(ctx,
		"SELECT id, article_id, content, created_at FROM rewrites WHERE article_id = ?",
		articleID,
	).Scan(&s.ID, &s.ArticleID, &s.Content, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading stored summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing summary: %w", err)
	}

	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var (
		article     models.Article
		description sql.NullString
		imageURL    sql.NullString
		category    sql.NullString
		publishedAt sql.NullTime
	)

	err := row.Scan(&article.ID, &article.URL, &article.Title, &description, &imageURL,
		&article.Source, &category, &publishedAt, &article.CreatedAt)
	if err != nil {
		return nil, err
	}

	article.Description = nullString(description)
	article.ImageURL = nullString(imageURL)
	article.Category = nullString(category)
	if publishedAt.Valid {
		t := publishedAt.Time
		article.PublishedAt = &t
	}

	return &article, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func matches(article *models.Article, search string) bool {
	if strings.Contains(strings.ToLower(article.Title), search) {
		return true
	}
	return article.Description != nil && strings.Contains(strings.ToLower(*article.Description), search)
}
