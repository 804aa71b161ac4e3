package tui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomaskoefod/newsgrid/internal/apperr"
	"github.com/thomaskoefod/newsgrid/internal/database"
	"github.com/thomaskoefod/newsgrid/internal/summary"
	"github.com/thomaskoefod/newsgrid/pkg/models"
)

type View int

const (
	ViewArticleList View = iota
	ViewArticleDetail
	ViewHelp
)

// summarizeTimeout bounds one summarization including the model-loading retry.
const summarizeTimeout = 45 * time.Second

type Store interface {
	ListArticles(ctx context.Context, filter database.ArticleFilter) ([]models.Article, error)
	GetSummary(ctx context.Context, articleID string) (*models.Summary, error)
}

type Ingester interface {
	FetchAllFeeds(ctx context.Context) (int, error)
}

type Summarizer interface {
	SummarizeArticle(ctx context.Context, articleID string) (*summary.Result, error)
	SummarizeText(ctx context.Context, text string) (*summary.Result, error)
}

type Model struct {
	store      Store
	ingester   Ingester
	summarizer Summarizer

	view      View
	articles  []models.Article
	list      list.Model
	width     int
	height    int
	err       error
	statusMsg string
	busy      bool

	current     *models.Article
	summaryText string
	// summarySaved distinguishes a stored summary from a one-off preview.
	summarySaved bool
}

type articlesLoadedMsg struct {
	articles []models.Article
}

type fetchedMsg struct {
	inserted int
}

type summaryMsg struct {
	articleID string
	text      string
	saved     bool
}

type errorMsg struct {
	err error
	// articleID ties a summarization failure to the article it was for.
	articleID string
}

type statusMsg string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	articleTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86")).
				MarginBottom(1)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func New(store Store, ingester Ingester, summarizer Summarizer) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "NewsGrid - Vietnamese headlines"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{
		store:      store,
		ingester:   ingester,
		summarizer: summarizer,
		view:       ViewArticleList,
		list:       l,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadArticles(m.store),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case articlesLoadedMsg:
		m.articles = msg.articles
		m.list.SetItems(toItems(m.articles))
		m.statusMsg = fmt.Sprintf("Loaded %d articles", len(m.articles))
		return m, nil

	case fetchedMsg:
		m.busy = false
		m.err = nil
		m.statusMsg = fmt.Sprintf("Fetched %d new articles", msg.inserted)
		return m, loadArticles(m.store)

	case summaryMsg:
		m.busy = false
		if m.current == nil || m.current.ID != msg.articleID {
			return m, nil
		}
		m.err = nil
		m.summaryText = msg.text
		m.summarySaved = msg.saved
		if msg.text != "" {
			m.statusMsg = "Summary ready"
		}
		return m, nil

	case errorMsg:
		m.busy = false
		if msg.articleID != "" && (m.current == nil || m.current.ID != msg.articleID) {
			return m, nil
		}
		m.err = msg.err
		return m, nil

	case statusMsg:
		m.statusMsg = string(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewArticleList:
		return m.handleListKeys(msg)
	case ViewArticleDetail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the filter input consume keys while the user is typing.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		if i, ok := m.list.SelectedItem().(articleItem); ok {
			m.open(i.article)
			return m, loadSummary(m.store, i.article.ID)
		}
		return m, nil

	case "s":
		if i, ok := m.list.SelectedItem().(articleItem); ok {
			if m.busy {
				return m, nil
			}
			m.open(i.article)
			m.busy = true
			m.statusMsg = "Summarizing..."
			return m, summarizeText(m.summarizer, i.article)
		}
		return m, nil

	case "r":
		m.err = nil
		m.statusMsg = "Refreshing articles..."
		return m, loadArticles(m.store)

	case "f":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.err = nil
		m.statusMsg = "Fetching new articles..."
		return m, fetchFeeds(m.ingester)

	case "?":
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewArticleList
		m.current = nil
		m.summaryText = ""
		m.err = nil
		return m, nil

	case "s":
		if m.current == nil || m.busy {
			return m, nil
		}
		if m.summarySaved {
			m.statusMsg = "Summary already saved"
			return m, nil
		}
		m.busy = true
		m.err = nil
		m.statusMsg = "Summarizing..."
		return m, summarizeArticle(m.summarizer, m.current.ID)

	case "?":
		m.view = ViewHelp
		return m, nil
	}

	return m, nil
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q":
		if m.current != nil {
			m.view = ViewArticleDetail
		} else {
			m.view = ViewArticleList
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) open(article models.Article) {
	m.view = ViewArticleDetail
	m.current = &article
	m.summaryText = ""
	m.summarySaved = false
	m.err = nil
}

func (m Model) View() string {
	switch m.view {
	case ViewArticleList:
		return m.renderList()
	case ViewArticleDetail:
		return m.renderDetail()
	case ViewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m Model) renderList() string {
	var s strings.Builder

	s.WriteString(m.list.View())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: read • s: quick summary • r: refresh • f: fetch new • ?: help • q: quit"))

	return s.String()
}

func (m Model) renderDetail() string {
	if m.current == nil {
		return ""
	}

	var s strings.Builder

	s.WriteString(formatArticleForView(*m.current, m.width))
	s.WriteString("\n")

	if m.summaryText != "" {
		label := "Summary (preview, not saved)"
		if m.summarySaved {
			label = "Summary"
		}
		s.WriteString(summaryStyle.Render(label + "\n\n" + m.summaryText))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderStatus())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("s: summarize & save • esc: back • ?: help • q: quit"))

	return s.String()
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + errorText(m.err))
	}
	if m.statusMsg != "" {
		return statusStyle.Render(m.statusMsg)
	}
	return ""
}

func (m Model) renderHelp() string {
	help := `
NewsGrid - Keyboard Shortcuts

Article List:
  ↑/↓, j/k     Navigate articles
  enter        Read article
  s            Summarize selected article without saving
  r            Refresh article list
  f            Fetch new articles from feeds
  /            Filter articles
  q, ctrl+c    Quit

Article Detail:
  s            Summarize and save (reuses a saved summary)
  esc          Back to list
  q, ctrl+c    Quit

General:
  ?            Show/hide this help
`
	return help + "\n" + helpStyle.Render("Press ? or esc to close help")
}

func loadArticles(store Store) tea.Cmd {
	return func() tea.Msg {
		articles, err := store.ListArticles(context.Background(), database.ArticleFilter{})
		if err != nil {
			return errorMsg{err: err}
		}
		return articlesLoadedMsg{articles}
	}
}

func loadSummary(store Store, articleID string) tea.Cmd {
	return func() tea.Msg {
		stored, err := store.GetSummary(context.Background(), articleID)
		if err != nil {
			return errorMsg{err: err}
		}
		if stored == nil {
			return nil
		}
		return summaryMsg{articleID: articleID, text: stored.Content, saved: true}
	}
}

func fetchFeeds(ingester Ingester) tea.Cmd {
	return func() tea.Msg {
		count, err := ingester.FetchAllFeeds(context.Background())
		if err != nil {
			return errorMsg{err: err}
		}
		return fetchedMsg{inserted: count}
	}
}

func summarizeArticle(s Summarizer, articleID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
		defer cancel()

		res, err := s.SummarizeArticle(ctx, articleID)
		if err != nil {
			return errorMsg{err: err, articleID: articleID}
		}
		return summaryMsg{articleID: articleID, text: res.Summary, saved: true}
	}
}

func summarizeText(s Summarizer, article models.Article) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
		defer cancel()

		res, err := s.SummarizeText(ctx, summary.ArticleText(&article))
		if err != nil {
			return errorMsg{err: err, articleID: article.ID}
		}
		return summaryMsg{articleID: article.ID, text: res.Summary}
	}
}

// errorText separates connectivity problems from everything else so the
// status line tells the user whether retrying could help.
func errorText(err error) string {
	switch apperr.KindOf(err) {
	case apperr.Timeout:
		return "summarization service did not respond in time, try again"
	case apperr.Upstream:
		return "summarization service unavailable: " + apperr.Message(err, "request failed")
	case apperr.Validation, apperr.NotFound, apperr.Config, apperr.EmptyResult:
		return apperr.Message(err, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return "network error, check your connection"
	}
	return err.Error()
}

func formatArticleForView(article models.Article, width int) string {
	var s strings.Builder

	s.WriteString(articleTitleStyle.Render(article.Title))
	s.WriteString("\n")

	meta := article.Source
	if article.PublishedAt != nil {
		meta += " | " + article.PublishedAt.Local().Format("Jan 2, 2006 15:04")
	}
	s.WriteString(helpStyle.Render(meta))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(article.URL))
	s.WriteString("\n")

	if article.Description != nil {
		s.WriteString(renderBody(*article.Description, width))
	}

	return s.String()
}

// renderBody converts feed HTML to markdown and renders it for the terminal.
// Conversion failures fall back to the raw text.
func renderBody(html string, width int) string {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return html + "\n"
	}

	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return markdown + "\n"
	}

	out, err := r.Render(markdown)
	if err != nil {
		return markdown + "\n"
	}
	return out
}
