package models

import "time"

// FeedSource is a syndication endpoint paired with the label stored on its articles.
type FeedSource struct {
	URL    string `json:"url" yaml:"url"`
	Source string `json:"source" yaml:"name"`
}

type Article struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"imageUrl"`
	Source      string     `json:"source"`
	Category    *string    `json:"category"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Summary is a memoized AI summary. At most one exists per article.
type Summary struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
