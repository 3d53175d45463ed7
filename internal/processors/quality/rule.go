package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
)

// RuleEnv is the environment an expression rule is evaluated against.
type RuleEnv struct {
	ID          string `expr:"id"`
	Title       string `expr:"title"`
	Description string `expr:"description"`
	Company     string `expr:"company"`
	Location    string `expr:"location"`
	URL         string `expr:"url"`
	Source      string `expr:"source"`
}

// RuleProcessor applies one boolean expression. With result "drop" a true
// expression drops the posting; with result "pass" only postings for which
// the expression is true are kept.
type RuleProcessor struct {
	name    string
	config  config.QualityRule
	program *vm.Program
}

func NewRuleProcessor(cfg *config.QualityRule) (*RuleProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("quality rule config is required")
	}
	program, err := expr.Compile(cfg.Rule, expr.Env(RuleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile quality rule: %w", err)
	}
	return &RuleProcessor{
		name:    cfg.Name,
		config:  *cfg,
		program: program,
	}, nil
}

func (p *RuleProcessor) Name() string {
	return p.name
}

func (p *RuleProcessor) Validate() error {
	if p.config.Name == "" || p.config.Rule == "" {
		return fmt.Errorf("rule name and expression are required")
	}
	if p.config.Result != core.QualityPass && p.config.Result != core.QualityDrop {
		return fmt.Errorf("rule result must be %q or %q", core.QualityPass, core.QualityDrop)
	}
	return nil
}

func (p *RuleProcessor) Evaluate(ctx context.Context, posting core.Posting) (core.QualityResult, error) {
	_ = ctx
	if err := p.Validate(); err != nil {
		return core.QualityResult{}, err
	}
	out, err := expr.Run(p.program, ruleEnv(posting))
	if err != nil {
		return core.QualityResult{}, fmt.Errorf("quality rule %s: %w", p.name, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return core.QualityResult{}, fmt.Errorf("quality rule %s did not return bool", p.name)
	}

	result := core.QualityResult{
		ProcessorName: p.name,
		Result:        core.QualityPass,
		ProcessedAt:   time.Now().UTC(),
	}
	keep := !matched
	if p.config.Result == core.QualityPass {
		keep = matched
	}
	if !keep {
		result.Result = core.QualityDrop
		result.Reason = p.config.Rule
	}
	return result, nil
}

func ruleEnv(posting core.Posting) RuleEnv {
	return RuleEnv{
		ID:          posting.ID,
		Title:       posting.Title,
		Description: posting.Description,
		Company:     posting.Company,
		Location:    posting.Location,
		URL:         posting.ApplyURL,
		Source:      posting.Source,
	}
}
