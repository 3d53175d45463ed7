package mock

import (
	"context"

	"github.com/bakkerme/jobalert/internal/sources/adzuna"
)

type Searcher struct {
	Jobs    []adzuna.Job
	Err     error
	Queries []adzuna.Query
}

func (s *Searcher) Search(ctx context.Context, query adzuna.Query) ([]adzuna.Job, error) {
	_ = ctx
	s.Queries = append(s.Queries, query)
	if s.Err != nil {
		return nil, s.Err
	}
	if query.ResultsPerPage > 0 && len(s.Jobs) > query.ResultsPerPage {
		return s.Jobs[:query.ResultsPerPage], nil
	}
	return s.Jobs, nil
}
