package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// ImageExtractor finds an image URL in an HTML fragment. An empty result is
// a normal outcome, not an error.
type ImageExtractor func(content string) string

var imgSrcRe = regexp.MustCompile(`<img[^>]+src="([^">]+)"`)

// FirstImageSrc returns the src of the first <img> tag in content.
// The match is not validated.
func FirstImageSrc(content string) string {
	m := imgSrcRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	strictPolicy = bluemonday.StrictPolicy()
	spaceRe      = regexp.MustCompile(`\s+`)
)

// Snippet reduces an HTML fragment to collapsed plain text.
func Snippet(content string) string {
	text := html.UnescapeString(strictPolicy.Sanitize(content))
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// rawContent is the entry's HTML body: the RSS description when present,
// else the full content (content:encoded, or Atom content).
func rawContent(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// description prefers the plain-text snippet, then the raw content.
func description(item *gofeed.Item) *string {
	raw := rawContent(item)
	if s := Snippet(raw); s != "" {
		return &s
	}
	if raw != "" {
		return &raw
	}
	return nil
}

func imageURL(item *gofeed.Item, extract ImageExtractor) *string {
	if u := enclosureURL(item); u != "" {
		return &u
	}
	if extract == nil {
		return nil
	}
	if u := extract(rawContent(item)); u != "" {
		return &u
	}
	return nil
}
