package output

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/outputs/message"
)

const postingTemplate = `🚨 NEW JOB JUST POSTED

Role: {{.Title}}
Company: {{.Company}}
Location: {{.Location}}

Apply now:
{{.ApplyURL}}`

var postingTmpl = template.Must(template.New("posting").Parse(postingTemplate))

// Options configures a NotifyProcessor.
type Options struct {
	From          string
	To            string
	SubjectPrefix string
	// RatePerSecond spaces consecutive sends; zero disables pacing.
	RatePerSecond float64
	// SendTimeout bounds each send; zero leaves only the caller's deadline.
	SendTimeout time.Duration
}

// NotifyProcessor renders postings and hands them to a single sink.
type NotifyProcessor struct {
	name    string
	sender  message.Sender
	options Options
	limiter *rate.Limiter
}

func NewNotifyProcessor(name string, sender message.Sender, options Options) (*NotifyProcessor, error) {
	if name == "" {
		return nil, fmt.Errorf("output name is required")
	}
	p := &NotifyProcessor{
		name:    name,
		sender:  sender,
		options: options,
	}
	if options.RatePerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(options.RatePerSecond), 1)
	}
	return p, nil
}

func (p *NotifyProcessor) Name() string {
	return p.name
}

func (p *NotifyProcessor) Validate() error {
	if p.sender == nil {
		return fmt.Errorf("%s sender is required", p.name)
	}
	if p.options.RatePerSecond < 0 {
		return fmt.Errorf("rate per second must be >= 0")
	}
	return nil
}

func (p *NotifyProcessor) Deliver(ctx context.Context, posting core.Posting) error {
	body, err := RenderPosting(posting)
	if err != nil {
		return err
	}
	return p.send(ctx, strings.TrimSpace(p.options.SubjectPrefix+" "+posting.Title), body)
}

func (p *NotifyProcessor) DeliverNotice(ctx context.Context, body string) error {
	return p.send(ctx, strings.TrimSpace(p.options.SubjectPrefix+" No new jobs"), body)
}

func (p *NotifyProcessor) send(ctx context.Context, subject, body string) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s output validation failed: %w", p.name, err)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for send slot: %w", err)
		}
	}
	if p.options.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.options.SendTimeout)
		defer cancel()
	}
	return p.sender.Send(ctx, message.Message{
		From:    p.options.From,
		To:      p.options.To,
		Subject: subject,
		Body:    body,
	})
}

// RenderPosting formats the fixed notification body for one posting.
func RenderPosting(posting core.Posting) (string, error) {
	var builder strings.Builder
	if err := postingTmpl.Execute(&builder, posting); err != nil {
		return "", fmt.Errorf("execute posting template failed: %w", err)
	}
	return builder.String(), nil
}
