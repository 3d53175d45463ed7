package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bakkerme/jobalert/internal/core"
	"gopkg.in/yaml.v3"
)

// AlertDocument represents the top-level structure of a jobalert.yaml file
type AlertDocument struct {
	Name         string         `yaml:"name,omitempty"`
	Source       SourceConfig   `yaml:"source"`
	Rules        *KeywordRules  `yaml:"rules,omitempty"`
	QualityRules []QualityRule  `yaml:"quality_rules,omitempty"`
	Store        StoreConfig    `yaml:"store"`
	Delivery     DeliveryConfig `yaml:"delivery"`
	Output       OutputConfig   `yaml:"output"`
	Schedule     *CronTrigger   `yaml:"schedule,omitempty"`
}

// SourceConfig wraps the supported source types. Exactly one must be set.
type SourceConfig struct {
	Adzuna *AdzunaSource `yaml:"adzuna,omitempty"`
	RSS    *RSSSource    `yaml:"rss,omitempty"`
}

// AdzunaSource defines the single search query issued per run
type AdzunaSource struct {
	Country         string               `yaml:"country,omitempty"`
	Page            int                  `yaml:"page,omitempty"`
	ResultsPerPage  int                  `yaml:"results_per_page,omitempty"`
	Keywords        []string             `yaml:"keywords"`
	Locations       []string             `yaml:"locations,omitempty"`
	DefaultCompany  string               `yaml:"default_company,omitempty"`
	DefaultLocation string               `yaml:"default_location,omitempty"`
	Snapshot        *core.SnapshotConfig `yaml:"snapshot,omitempty"`
}

// RSSSource defines a job feed polled once per run
type RSSSource struct {
	Feed            string               `yaml:"feed"`
	Limit           int                  `yaml:"limit,omitempty"`
	UserAgent       string               `yaml:"user_agent,omitempty"`
	DefaultCompany  string               `yaml:"default_company,omitempty"`
	DefaultLocation string               `yaml:"default_location,omitempty"`
	Snapshot        *core.SnapshotConfig `yaml:"snapshot,omitempty"`
}

// KeywordRules holds the include/exclude phrase lists used by the classifier.
type KeywordRules struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// QualityRule defines an expression gate evaluated after the keyword rules
type QualityRule struct {
	Name   string `yaml:"name"`
	Rule   string `yaml:"rule"`
	Result string `yaml:"result"`
}

// StoreType selects the seen-set backend.
type StoreType string

const (
	StoreFile     StoreType = "file"
	StoreSQLite   StoreType = "sqlite"
	StoreBadger   StoreType = "badger"
	StorePostgres StoreType = "postgres"
)

type StoreConfig struct {
	Type     StoreType `yaml:"type,omitempty"`
	Path     string    `yaml:"path,omitempty"`
	DSN      string    `yaml:"dsn,omitempty"`
	Table    string    `yaml:"table,omitempty"`
	LockPath string    `yaml:"lock_path,omitempty"`
}

// MarkSeenPolicy decides when a notified posting enters the seen set.
type MarkSeenPolicy string

const (
	// MarkSeenOnAttempt marks a posting seen once delivery was attempted,
	// whether or not the sink accepted it. A failed delivery is not retried.
	MarkSeenOnAttempt MarkSeenPolicy = "on_attempt"
	// MarkSeenOnSuccess marks a posting seen only after the sink accepted it,
	// so failed deliveries are retried by the next run.
	MarkSeenOnSuccess MarkSeenPolicy = "on_success"
)

type DeliveryConfig struct {
	MarkSeen        MarkSeenPolicy `yaml:"mark_seen,omitempty"`
	RatePerSecond   float64        `yaml:"rate_per_second,omitempty"`
	EmptyNotice     bool           `yaml:"empty_notice,omitempty"`
	EmptyNoticeText string         `yaml:"empty_notice_text,omitempty"`
}

// OutputConfig wraps the supported sinks. Exactly one must be set.
type OutputConfig struct {
	Twilio   *TwilioOutput   `yaml:"twilio,omitempty"`
	SMTP     *SMTPOutput     `yaml:"smtp,omitempty"`
	Telegram *TelegramOutput `yaml:"telegram,omitempty"`
}

// TwilioOutput sends WhatsApp messages. Addresses fall back to WHATSAPP_FROM/WHATSAPP_TO.
type TwilioOutput struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
}

// SMTPOutput sends one email per posting. Addresses fall back to EMAIL_FROM/EMAIL_TO.
type SMTPOutput struct {
	From          string `yaml:"from,omitempty"`
	To            string `yaml:"to,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// TelegramOutput posts to a chat. The chat falls back to TELEGRAM_CHAT_ID.
type TelegramOutput struct {
	ChatID int64 `yaml:"chat_id,omitempty"`
}

// CronTrigger defines the schedule used by `jobalert schedule`
type CronTrigger struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone,omitempty"`
}

const (
	DefaultDocumentName    = "entry-level-software-jobs"
	DefaultPlaceholder     = "N/A"
	DefaultLocation        = "India"
	DefaultStorePath       = "data/seen_jobs.txt"
	DefaultSQLiteTable     = "seen_postings"
	DefaultEmptyNoticeText = "No new verified fresher or entry-level jobs today."
)

// DefaultRules returns the entry-level rule set used when a document has no rules section.
func DefaultRules() KeywordRules {
	return KeywordRules{
		Include: []string{"entry", "fresher", "graduate", "intern", "trainee", "associate", "sde-1", "sde i", "junior"},
		Exclude: []string{"senior", "lead", "principal", "staff", "manager", "architect", "sr", "ii", "iii", "3+"},
	}
}

// DefaultAdzunaSource returns the query used when a document has no source section.
func DefaultAdzunaSource() *AdzunaSource {
	return &AdzunaSource{
		Country:         "in",
		Page:            1,
		ResultsPerPage:  15,
		Keywords:        []string{"software engineer", "software developer", "sde"},
		Locations:       []string{"Bangalore", "Bengaluru", "Chennai", "Hyderabad"},
		DefaultCompany:  DefaultPlaceholder,
		DefaultLocation: DefaultLocation,
	}
}

// DefaultDocument is the document used when no jobalert.yaml exists.
func DefaultDocument() *AlertDocument {
	doc := &AlertDocument{}
	doc.ApplyDefaults()
	return doc
}

// LoadDocument reads and normalizes an alert document. A missing file is
// reported with an error wrapping os.ErrNotExist.
func LoadDocument(path string) (*AlertDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert document: %w", err)
	}
	return ParseDocument(data)
}

// LoadDocumentOrDefault behaves like LoadDocument but falls back to
// DefaultDocument when the file does not exist. The bool reports whether the
// file was found.
func LoadDocumentOrDefault(path string) (*AlertDocument, bool, error) {
	doc, err := LoadDocument(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultDocument(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// ParseDocument decodes YAML, fills defaults, and validates the result.
func ParseDocument(data []byte) (*AlertDocument, error) {
	var doc AlertDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse alert document: %w", err)
	}
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ApplyDefaults fills omitted sections and normalizes the keyword rules to
// lowercase with empty phrases removed.
func (d *AlertDocument) ApplyDefaults() {
	if d.Name == "" {
		d.Name = DefaultDocumentName
	}
	if d.Source.Adzuna == nil && d.Source.RSS == nil {
		d.Source.Adzuna = DefaultAdzunaSource()
	}
	if a := d.Source.Adzuna; a != nil {
		if a.Country == "" {
			a.Country = "in"
		}
		if a.Page <= 0 {
			a.Page = 1
		}
		if a.ResultsPerPage <= 0 {
			a.ResultsPerPage = 15
		}
		if a.DefaultCompany == "" {
			a.DefaultCompany = DefaultPlaceholder
		}
		if a.DefaultLocation == "" {
			a.DefaultLocation = DefaultLocation
		}
	}
	if r := d.Source.RSS; r != nil {
		if r.DefaultCompany == "" {
			r.DefaultCompany = DefaultPlaceholder
		}
		if r.DefaultLocation == "" {
			r.DefaultLocation = DefaultPlaceholder
		}
	}

	if d.Rules == nil {
		rules := DefaultRules()
		d.Rules = &rules
	}
	d.Rules.Include = normalizePhrases(d.Rules.Include)
	d.Rules.Exclude = normalizePhrases(d.Rules.Exclude)

	if d.Store.Type == "" {
		d.Store.Type = StoreFile
	}
	if d.Store.Path == "" {
		switch d.Store.Type {
		case StoreSQLite:
			d.Store.Path = "data/seen_jobs.db"
		case StoreBadger:
			d.Store.Path = "data/seen_jobs"
		default:
			d.Store.Path = DefaultStorePath
		}
	}
	if d.Store.Table == "" {
		d.Store.Table = DefaultSQLiteTable
	}
	if d.Store.LockPath == "" {
		d.Store.LockPath = "data/jobalert.lock"
	}

	if d.Delivery.MarkSeen == "" {
		d.Delivery.MarkSeen = MarkSeenOnAttempt
	}
	if d.Delivery.EmptyNoticeText == "" {
		d.Delivery.EmptyNoticeText = DefaultEmptyNoticeText
	}

	if d.Output.Twilio == nil && d.Output.SMTP == nil && d.Output.Telegram == nil {
		d.Output.Twilio = &TwilioOutput{}
	}
}

// normalizePhrases lower-cases each phrase and drops empty ones. Surrounding
// whitespace is kept, since " ii" and "ii" match differently.
func normalizePhrases(phrases []string) []string {
	if phrases == nil {
		return nil
	}
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		out = append(out, strings.ToLower(phrase))
	}
	return out
}

// Validate performs validation on the alert document
func (d *AlertDocument) Validate() error {
	sources := 0
	if d.Source.Adzuna != nil {
		sources++
		if len(d.Source.Adzuna.Keywords) == 0 {
			return fmt.Errorf("source adzuna: at least one keyword is required")
		}
		if d.Source.Adzuna.ResultsPerPage > 50 {
			return fmt.Errorf("source adzuna: results_per_page must be <= 50")
		}
		if err := validateSnapshotConfig("source adzuna", d.Source.Adzuna.Snapshot); err != nil {
			return err
		}
	}
	if d.Source.RSS != nil {
		sources++
		if strings.TrimSpace(d.Source.RSS.Feed) == "" {
			return fmt.Errorf("source rss: feed is required")
		}
		if err := validateSnapshotConfig("source rss", d.Source.RSS.Snapshot); err != nil {
			return err
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one source is required, got %d", sources)
	}

	if d.Rules == nil || len(d.Rules.Include) == 0 {
		return fmt.Errorf("rules: at least one include phrase is required")
	}

	for i, rule := range d.QualityRules {
		if rule.Name == "" || rule.Rule == "" {
			return fmt.Errorf("quality_rules %d: rule name and expression are required", i)
		}
		if rule.Result != core.QualityPass && rule.Result != core.QualityDrop {
			return fmt.Errorf("quality_rules %d: result must be 'pass' or 'drop'", i)
		}
	}

	switch d.Store.Type {
	case StoreFile, StoreSQLite, StoreBadger:
		if d.Store.Path == "" {
			return fmt.Errorf("store %s: path is required", d.Store.Type)
		}
	case StorePostgres:
		// The DSN may come from STORE_DSN, checked once env is merged.
	default:
		return fmt.Errorf("store: unsupported type %q", d.Store.Type)
	}

	switch d.Delivery.MarkSeen {
	case MarkSeenOnAttempt, MarkSeenOnSuccess:
	default:
		return fmt.Errorf("delivery: mark_seen must be %q or %q", MarkSeenOnAttempt, MarkSeenOnSuccess)
	}
	if d.Delivery.RatePerSecond < 0 {
		return fmt.Errorf("delivery: rate_per_second must be >= 0")
	}

	outputs := 0
	if d.Output.Twilio != nil {
		outputs++
	}
	if d.Output.SMTP != nil {
		outputs++
	}
	if d.Output.Telegram != nil {
		outputs++
	}
	if outputs != 1 {
		return fmt.Errorf("exactly one output is required, got %d", outputs)
	}

	if d.Schedule != nil && strings.TrimSpace(d.Schedule.Cron) == "" {
		return fmt.Errorf("schedule: cron expression is required")
	}
	return nil
}

func validateSnapshotConfig(label string, cfg *core.SnapshotConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.Snapshot && cfg.Restore {
		return fmt.Errorf("%s: snapshot and restore cannot both be true", label)
	}
	if (cfg.Snapshot || cfg.Restore) && cfg.Path == "" {
		return fmt.Errorf("%s: snapshot path is required", label)
	}
	return nil
}

// ProcessorFactory constructs concrete processor implementations for a parsed document.
type ProcessorFactory interface {
	NewCronTrigger(config *CronTrigger) (core.TriggerProcessor, error)
	NewAdzunaSource(config *AdzunaSource) (core.SourceProcessor, error)
	NewRSSSource(config *RSSSource) (core.SourceProcessor, error)
	NewKeywordQuality(config *KeywordRules) (core.QualityProcessor, error)
	NewQualityRule(config *QualityRule) (core.QualityProcessor, error)
	NewTwilioOutput(config *TwilioOutput, delivery DeliveryConfig) (core.OutputProcessor, error)
	NewSMTPOutput(config *SMTPOutput, delivery DeliveryConfig) (core.OutputProcessor, error)
	NewTelegramOutput(config *TelegramOutput, delivery DeliveryConfig) (core.OutputProcessor, error)
}

// ParseToPipelineWithFactory validates the document and wires its processors.
// The keyword classifier always runs first, followed by quality_rules in
// document order.
func (d *AlertDocument) ParseToPipelineWithFactory(factory ProcessorFactory) (*core.Pipeline, error) {
	if factory == nil {
		return nil, fmt.Errorf("processor factory is required")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	pipeline := &core.Pipeline{Name: d.Name}

	var err error
	switch {
	case d.Source.Adzuna != nil:
		pipeline.Source, err = factory.NewAdzunaSource(d.Source.Adzuna)
	case d.Source.RSS != nil:
		pipeline.Source, err = factory.NewRSSSource(d.Source.RSS)
	}
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}

	keyword, err := factory.NewKeywordQuality(d.Rules)
	if err != nil {
		return nil, fmt.Errorf("build keyword rules: %w", err)
	}
	pipeline.Quality = append(pipeline.Quality, keyword)
	for i := range d.QualityRules {
		processor, err := factory.NewQualityRule(&d.QualityRules[i])
		if err != nil {
			return nil, fmt.Errorf("build quality rule %q: %w", d.QualityRules[i].Name, err)
		}
		pipeline.Quality = append(pipeline.Quality, processor)
	}

	switch {
	case d.Output.Twilio != nil:
		pipeline.Output, err = factory.NewTwilioOutput(d.Output.Twilio, d.Delivery)
	case d.Output.SMTP != nil:
		pipeline.Output, err = factory.NewSMTPOutput(d.Output.SMTP, d.Delivery)
	case d.Output.Telegram != nil:
		pipeline.Output, err = factory.NewTelegramOutput(d.Output.Telegram, d.Delivery)
	}
	if err != nil {
		return nil, fmt.Errorf("build output: %w", err)
	}

	if d.Schedule != nil {
		pipeline.Trigger, err = factory.NewCronTrigger(d.Schedule)
		if err != nil {
			return nil, fmt.Errorf("build schedule: %w", err)
		}
	}
	return pipeline, nil
}

// SourceKind returns the name of the configured source.
func (d *AlertDocument) SourceKind() string {
	if d.Source.RSS != nil {
		return "rss"
	}
	return "adzuna"
}

// OutputKind returns the name of the configured sink.
func (d *AlertDocument) OutputKind() string {
	switch {
	case d.Output.SMTP != nil:
		return "smtp"
	case d.Output.Telegram != nil:
		return "telegram"
	default:
		return "twilio"
	}
}
