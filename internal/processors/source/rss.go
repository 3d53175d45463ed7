package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/sources/rss"
)

// RSSProcessor reads postings from a single RSS or Atom job feed.
type RSSProcessor struct {
	name    string
	config  config.RSSSource
	fetcher rss.Fetcher
}

func NewRSSProcessor(cfg *config.RSSSource, fetcher rss.Fetcher) (*RSSProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rss config is required")
	}
	return &RSSProcessor{
		name:    "rss",
		config:  *cfg,
		fetcher: fetcher,
	}, nil
}

func (p *RSSProcessor) Name() string {
	return p.name
}

func (p *RSSProcessor) Validate() error {
	if strings.TrimSpace(p.config.Feed) == "" {
		return fmt.Errorf("rss feed is required")
	}
	if p.fetcher == nil {
		return fmt.Errorf("rss fetcher is required")
	}
	return nil
}

func (p *RSSProcessor) SnapshotConfig() *core.SnapshotConfig {
	return p.config.Snapshot
}

func (p *RSSProcessor) Fetch(ctx context.Context) ([]core.Posting, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	items, err := p.fetcher.Fetch(ctx, p.config.Feed, rss.FetchOptions{
		Limit:     p.config.Limit,
		UserAgent: p.config.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	postings := make([]core.Posting, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			id = strings.TrimSpace(item.Link)
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}

		postings = append(postings, core.Posting{
			ID:          id,
			Title:       rss.HTMLToText(item.Title),
			Description: rss.HTMLToText(body),
			Company:     orDefault(item.Author, p.config.DefaultCompany),
			Location:    p.config.DefaultLocation,
			ApplyURL:    item.Link,
			Source:      p.name,
		})
	}
	return postings, nil
}
