package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

type articleItem struct {
	article models.Article
}

func (i articleItem) Title() string {
	return i.article.Title
}

func (i articleItem) Description() string {
	if i.article.PublishedAt == nil {
		return i.article.Source
	}
	return fmt.Sprintf("%s | %s", i.article.Source, i.article.PublishedAt.Local().Format("Jan 2, 2006 15:04"))
}

func (i articleItem) FilterValue() string {
	return i.article.Title
}

var _ list.Item = articleItem{}

func toItems(articles []models.Article) []list.Item {
	items := make([]list.Item, len(articles))
	for i, article := range articles {
		items[i] = articleItem{article}
	}
	return items
}
