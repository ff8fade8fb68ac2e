package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/infra/httpclient"
)

const defaultNewsSource = "Google News"

// GoogleNews searches the Google News RSS endpoint, one request per query.
type GoogleNews struct {
	client  *httpclient.Client
	baseURL string
	limit   int
	now     func() time.Time
}

func NewGoogleNews(client *httpclient.Client, baseURL string, limit int) *GoogleNews {
	if limit <= 0 {
		limit = 6
	}
	return &GoogleNews{client: client, baseURL: baseURL, limit: limit, now: time.Now}
}

func (g *GoogleNews) Name() string { return "google-news" }

// Fetch returns at most limit headlines for q in feed order.
func (g *GoogleNews) Fetch(ctx context.Context, q domain.NewsQuery) ([]domain.NewsItem, error) {
	params := url.Values{
		"q":    {q.Query},
		"hl":   {"pt-BR"},
		"gl":   {"BR"},
		"ceid": {"BR:pt-419"},
	}
	body, err := g.client.GetBytes(ctx, g.baseURL, params)
	if err != nil {
		return nil, err
	}
	return g.Parse(body, q)
}

// Parse decodes an RSS document into news items.
func (g *GoogleNews) Parse(body []byte, q domain.NewsQuery) ([]domain.NewsItem, error) {
	parser := &rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss for %s: %v: %w", q.Ticker, err, domain.ErrProviderInvalidResponse)
	}

	entries := feed.Items
	if len(entries) > g.limit {
		entries = entries[:g.limit]
	}

	items := make([]domain.NewsItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, g.item(e, q))
	}
	return items, nil
}

func (g *GoogleNews) item(e *rss.Item, q domain.NewsQuery) domain.NewsItem {
	item := domain.NewsItem{
		PublishedAt: g.now(),
		Ticker:      q.Ticker,
		Category:    q.Category,
		Title:       strings.TrimSpace(e.Title),
		Source:      defaultNewsSource,
		Link:        e.Link,
	}
	if e.PubDateParsed != nil {
		item.PublishedAt = *e.PubDateParsed
	}
	if e.Source != nil && e.Source.Title != "" {
		item.Source = e.Source.Title
	}
	if e.GUID != nil && e.GUID.Value != "" {
		id := e.GUID.Value
		item.ExternalID = &id
	}
	return item
}
