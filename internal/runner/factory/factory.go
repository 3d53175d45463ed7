package factory

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/outputs/message"
	"github.com/bakkerme/jobalert/internal/outputs/message/smtp"
	"github.com/bakkerme/jobalert/internal/outputs/message/telegram"
	"github.com/bakkerme/jobalert/internal/outputs/message/twilio"
	"github.com/bakkerme/jobalert/internal/processors/output"
	"github.com/bakkerme/jobalert/internal/processors/quality"
	"github.com/bakkerme/jobalert/internal/processors/source"
	"github.com/bakkerme/jobalert/internal/processors/trigger"
	"github.com/bakkerme/jobalert/internal/runner/snapshot"
	"github.com/bakkerme/jobalert/internal/sources/adzuna"
	adzunaimpl "github.com/bakkerme/jobalert/internal/sources/adzuna/impl"
	"github.com/bakkerme/jobalert/internal/sources/rss"
	rssimpl "github.com/bakkerme/jobalert/internal/sources/rss/impl"
)

// Factory builds processors for a parsed document. Collaborators left nil
// are constructed from Env on demand, so tests can inject fakes.
type Factory struct {
	Logger         *slog.Logger
	Env            config.EnvConfig
	AdzunaSearcher adzuna.Searcher
	RSSFetcher     rss.Fetcher
	Sender         message.Sender
}

// NewFromEnvConfig returns a factory whose network clients use env. Sinks are
// created when the document selects them.
func NewFromEnvConfig(logger *slog.Logger, env config.EnvConfig) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		Logger:         logger,
		Env:            env,
		AdzunaSearcher: adzunaimpl.NewClient(env.Adzuna.HTTPTimeout, env.Adzuna.UserAgent, env.Adzuna.BaseURL, env.Adzuna.AppID, env.Adzuna.AppKey),
		RSSFetcher:     rssimpl.NewFetcher(env.RSS.HTTPTimeout, env.RSS.UserAgent),
	}
}

func (f *Factory) NewCronTrigger(cfg *config.CronTrigger) (core.TriggerProcessor, error) {
	processor := trigger.NewCronProcessor(cfg.Cron, cfg.Timezone)
	if err := processor.Validate(); err != nil {
		return nil, err
	}
	return processor, nil
}

func (f *Factory) NewAdzunaSource(cfg *config.AdzunaSource) (core.SourceProcessor, error) {
	processor, err := source.NewAdzunaProcessor(cfg, f.AdzunaSearcher)
	if err != nil {
		return nil, err
	}
	return snapshot.WrapSource(processor, cfg.Snapshot), nil
}

func (f *Factory) NewRSSSource(cfg *config.RSSSource) (core.SourceProcessor, error) {
	processor, err := source.NewRSSProcessor(cfg, f.RSSFetcher)
	if err != nil {
		return nil, err
	}
	return snapshot.WrapSource(processor, cfg.Snapshot), nil
}

func (f *Factory) NewKeywordQuality(cfg *config.KeywordRules) (core.QualityProcessor, error) {
	return quality.NewKeywordProcessor(cfg)
}

func (f *Factory) NewQualityRule(cfg *config.QualityRule) (core.QualityProcessor, error) {
	return quality.NewRuleProcessor(cfg)
}

func (f *Factory) NewTwilioOutput(cfg *config.TwilioOutput, delivery config.DeliveryConfig) (core.OutputProcessor, error) {
	env := f.resolvedEnv(&config.OutputConfig{Twilio: cfg})
	sender := f.Sender
	if sender == nil {
		sender = twilio.NewSender(env.Twilio.AccountSID, env.Twilio.AuthToken, env.Twilio.From, env.Twilio.To, env.SendTimeout)
	}
	return output.NewNotifyProcessor("twilio", sender, output.Options{
		From:          env.Twilio.From,
		To:            env.Twilio.To,
		RatePerSecond: delivery.RatePerSecond,
		SendTimeout:   env.SendTimeout,
	})
}

func (f *Factory) NewSMTPOutput(cfg *config.SMTPOutput, delivery config.DeliveryConfig) (core.OutputProcessor, error) {
	env := f.resolvedEnv(&config.OutputConfig{SMTP: cfg})
	sender := f.Sender
	if sender == nil {
		if err := smtp.ValidateConfig(env.SMTP.Host, env.SMTP.Port, env.SMTP.TLSMode); err != nil {
			return nil, err
		}
		sender = smtp.NewSender(env.SMTP.Host, env.SMTP.Port, env.SMTP.User, env.SMTP.Password, env.SMTP.TLSMode, env.SMTP.InsecureSkipVerify)
	}
	subjectPrefix := "[jobalert]"
	if cfg != nil && cfg.SubjectPrefix != "" {
		subjectPrefix = cfg.SubjectPrefix
	}
	return output.NewNotifyProcessor("smtp", sender, output.Options{
		From:          env.SMTP.From,
		To:            env.SMTP.To,
		SubjectPrefix: subjectPrefix,
		RatePerSecond: delivery.RatePerSecond,
		SendTimeout:   env.SendTimeout,
	})
}

func (f *Factory) NewTelegramOutput(cfg *config.TelegramOutput, delivery config.DeliveryConfig) (core.OutputProcessor, error) {
	env := f.resolvedEnv(&config.OutputConfig{Telegram: cfg})
	if env.Telegram.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	sender := f.Sender
	if sender == nil {
		sender = telegram.NewSender(env.Telegram.Token, env.Telegram.ChatID, env.SendTimeout)
	}
	return output.NewNotifyProcessor("telegram", sender, output.Options{
		To:            strconv.FormatInt(env.Telegram.ChatID, 10),
		RatePerSecond: delivery.RatePerSecond,
		SendTimeout:   env.SendTimeout,
	})
}

// resolvedEnv applies per-sink document overrides to the factory env.
func (f *Factory) resolvedEnv(outputs *config.OutputConfig) config.EnvConfig {
	doc := &config.AlertDocument{Output: *outputs}
	return doc.ResolveEnv(f.Env)
}
