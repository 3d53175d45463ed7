package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/sources/adzuna"
)

// AdzunaProcessor turns one Adzuna search page into postings.
type AdzunaProcessor struct {
	name     string
	config   config.AdzunaSource
	searcher adzuna.Searcher
}

func NewAdzunaProcessor(cfg *config.AdzunaSource, searcher adzuna.Searcher) (*AdzunaProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("adzuna config is required")
	}
	return &AdzunaProcessor{
		name:     "adzuna",
		config:   *cfg,
		searcher: searcher,
	}, nil
}

func (p *AdzunaProcessor) Name() string {
	return p.name
}

func (p *AdzunaProcessor) Validate() error {
	if len(p.config.Keywords) == 0 {
		return fmt.Errorf("at least one adzuna keyword is required")
	}
	if p.searcher == nil {
		return fmt.Errorf("adzuna searcher is required")
	}
	return nil
}

func (p *AdzunaProcessor) SnapshotConfig() *core.SnapshotConfig {
	return p.config.Snapshot
}

// Fetch issues exactly one search request and keeps the API's result order.
func (p *AdzunaProcessor) Fetch(ctx context.Context) ([]core.Posting, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	jobs, err := p.searcher.Search(ctx, adzuna.Query{
		Country:        p.config.Country,
		Page:           p.config.Page,
		ResultsPerPage: p.config.ResultsPerPage,
		Keywords:       p.config.Keywords,
		Locations:      p.config.Locations,
	})
	if err != nil {
		return nil, err
	}

	postings := make([]core.Posting, 0, len(jobs))
	for _, job := range jobs {
		postings = append(postings, core.Posting{
			ID:          strings.TrimSpace(job.ID),
			Title:       job.Title,
			Description: job.Description,
			Company:     orDefault(job.Company, p.config.DefaultCompany),
			Location:    orDefault(job.Location, p.config.DefaultLocation),
			ApplyURL:    job.RedirectURL,
			Source:      p.name,
		})
	}
	return postings, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
