package adzuna

import "context"

// Query describes one page of an Adzuna job search.
type Query struct {
	Country        string
	Page           int
	ResultsPerPage int
	// Keywords and Locations are sent as "a OR b" expressions.
	Keywords  []string
	Locations []string
}

// Job is the subset of an Adzuna result the alert pipeline reads. Company and
// Location are empty when the API omits them.
type Job struct {
	ID          string
	Title       string
	Description string
	Company     string
	Location    string
	RedirectURL string
}

// Searcher runs a single search request.
type Searcher interface {
	Search(ctx context.Context, query Query) ([]Job, error)
}
