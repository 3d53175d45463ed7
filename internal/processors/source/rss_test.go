package source

import (
	"context"
	"errors"
	"testing"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/sources/rss"
	rssmock "github.com/bakkerme/jobalert/internal/sources/rss/mock"
)

const feedURL = "https://example.com/jobs.xml"

func TestRSSProcessorMapsItems(t *testing.T) {
	cfg := &config.RSSSource{Feed: feedURL, DefaultCompany: "N/A", DefaultLocation: "Remote"}
	fetcher := &rssmock.Fetcher{ItemsByFeed: map[string][]rss.Item{feedURL: {
		{
			ID:          "guid-1",
			Title:       "Junior Developer",
			Link:        "https://example.com/jobs/1",
			Description: "Summary",
			Content:     "<p>Full <b>content</b></p>",
			Author:      "Acme",
		},
		{
			Title:       "Trainee Analyst",
			Link:        "https://example.com/jobs/2",
			Description: "<p>Only a summary</p>",
		},
	}}}

	processor, err := NewRSSProcessor(cfg, fetcher)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	postings, err := processor.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}
	first := postings[0]
	if first.ID != "guid-1" || first.Description != "Full content" || first.Company != "Acme" || first.Location != "Remote" {
		t.Errorf("unexpected first posting %+v", first)
	}
	second := postings[1]
	if second.ID != "https://example.com/jobs/2" {
		t.Errorf("expected link to stand in for a missing guid, got %q", second.ID)
	}
	if second.Description != "Only a summary" || second.Company != "N/A" || second.Source != "rss" {
		t.Errorf("unexpected second posting %+v", second)
	}
}

func TestRSSProcessorPropagatesFetchError(t *testing.T) {
	fetcher := &rssmock.Fetcher{ErrByFeed: map[string]error{feedURL: errors.New("timeout")}}
	processor, err := NewRSSProcessor(&config.RSSSource{Feed: feedURL}, fetcher)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	if _, err := processor.Fetch(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestRSSProcessorValidate(t *testing.T) {
	processor, err := NewRSSProcessor(&config.RSSSource{}, &rssmock.Fetcher{})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	if err := processor.Validate(); err == nil {
		t.Fatalf("expected missing feed error")
	}
}
