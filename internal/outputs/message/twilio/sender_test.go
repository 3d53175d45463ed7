package twilio

import (
	"context"
	"errors"
	"testing"

	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/bakkerme/jobalert/internal/outputs/message"
)

type fakeCreator struct {
	params []*openapi.CreateMessageParams
	resp   *openapi.ApiV2010Message
	err    error
}

func (f *fakeCreator) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &openapi.ApiV2010Message{}, nil
}

func TestSenderUsesDefaultsAndWhatsAppPrefix(t *testing.T) {
	creator := &fakeCreator{}
	sender := &Sender{api: creator, from: "whatsapp:+14155238886", to: "+919000000000"}

	if err := sender.Send(context.Background(), message.Message{Body: "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(creator.params) != 1 {
		t.Fatalf("expected one API call, got %d", len(creator.params))
	}
	p := creator.params[0]
	if *p.From != "whatsapp:+14155238886" || *p.To != "whatsapp:+919000000000" || *p.Body != "hello" {
		t.Fatalf("unexpected params from=%s to=%s body=%s", *p.From, *p.To, *p.Body)
	}
}

func TestSenderMessageOverridesDefaults(t *testing.T) {
	creator := &fakeCreator{}
	sender := &Sender{api: creator, from: "whatsapp:+1", to: "whatsapp:+2"}

	if err := sender.Send(context.Background(), message.Message{To: "whatsapp:+3", Body: "x"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := *creator.params[0].To; got != "whatsapp:+3" {
		t.Fatalf("to = %q", got)
	}
}

func TestSenderReportsFailures(t *testing.T) {
	sender := &Sender{api: &fakeCreator{err: errors.New("429 Too Many Requests")}, from: "+1", to: "+2"}
	if err := sender.Send(context.Background(), message.Message{Body: "x"}); err == nil {
		t.Fatalf("expected API error")
	}

	code := 63016
	reason := "outside the allowed window"
	rejected := &Sender{api: &fakeCreator{resp: &openapi.ApiV2010Message{ErrorCode: &code, ErrorMessage: &reason}}, from: "+1", to: "+2"}
	if err := rejected.Send(context.Background(), message.Message{Body: "x"}); err == nil {
		t.Fatalf("expected rejection error")
	}

	missing := &Sender{api: &fakeCreator{}}
	if err := missing.Send(context.Background(), message.Message{Body: "x"}); err == nil {
		t.Fatalf("expected missing address error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Sender{api: &fakeCreator{}, from: "+1", to: "+2"}).Send(ctx, message.Message{}); err == nil {
		t.Fatalf("expected context error")
	}
}
