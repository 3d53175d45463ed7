package quality

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
)

// Rules is an include/exclude phrase set. Phrases are matched as plain
// substrings of the lower-cased title and description, so "sr" also matches
// inside words like "sre". Callers normalize phrases before building Rules.
type Rules struct {
	Include []string
	Exclude []string
}

// NewRules copies the document's keyword rules.
func NewRules(cfg *config.KeywordRules) Rules {
	if cfg == nil {
		return Rules{}
	}
	return Rules{
		Include: append([]string(nil), cfg.Include...),
		Exclude: append([]string(nil), cfg.Exclude...),
	}
}

// IsRelevant reports whether any include phrase and no exclude phrase occurs
// in title + " " + description.
func (r Rules) IsRelevant(title, description string) bool {
	_, ok := r.match(title, description)
	return ok
}

// match returns the reason a text was rejected alongside the verdict.
func (r Rules) match(title, description string) (string, bool) {
	text := strings.ToLower(title + " " + description)

	included := false
	for _, phrase := range r.Include {
		if strings.Contains(text, phrase) {
			included = true
			break
		}
	}
	if !included {
		return "no include phrase", false
	}
	for _, phrase := range r.Exclude {
		if strings.Contains(text, phrase) {
			return fmt.Sprintf("exclude phrase %q", phrase), false
		}
	}
	return "", true
}

// KeywordProcessor is the entry-level classifier gate.
type KeywordProcessor struct {
	name  string
	rules Rules
}

func NewKeywordProcessor(cfg *config.KeywordRules) (*KeywordProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("keyword rules are required")
	}
	return &KeywordProcessor{name: "keywords", rules: NewRules(cfg)}, nil
}

func (p *KeywordProcessor) Name() string {
	return p.name
}

func (p *KeywordProcessor) Validate() error {
	if len(p.rules.Include) == 0 {
		return fmt.Errorf("at least one include phrase is required")
	}
	return nil
}

func (p *KeywordProcessor) Rules() Rules {
	return p.rules
}

func (p *KeywordProcessor) Evaluate(ctx context.Context, posting core.Posting) (core.QualityResult, error) {
	_ = ctx
	result := core.QualityResult{
		ProcessorName: p.name,
		Result:        core.QualityPass,
		ProcessedAt:   time.Now().UTC(),
	}
	if reason, ok := p.rules.match(posting.Title, posting.Description); !ok {
		result.Result = core.QualityDrop
		result.Reason = reason
	}
	return result, nil
}
