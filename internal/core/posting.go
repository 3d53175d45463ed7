package core

import "strings"

// Posting is a single job listing as returned by a source. Postings are
// treated as immutable values once fetched.
type Posting struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Company     string `json:"company" yaml:"company"`
	Location    string `json:"location" yaml:"location"`
	ApplyURL    string `json:"apply_url" yaml:"apply_url"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Dedupable reports whether the posting carries an identifier that can be
// tracked across runs.
func (p Posting) Dedupable() bool {
	return ValidID(p.ID)
}

// ValidID reports whether id can be stored in a seen set. Identifiers must be
// non-empty and free of line breaks, since the file store is line-delimited.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "\r\n")
}
