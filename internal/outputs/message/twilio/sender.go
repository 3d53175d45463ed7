package twilio

import (
	"context"
	"fmt"
	"strings"
	"time"

	twilioapi "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/bakkerme/jobalert/internal/outputs/message"
)

const whatsappScheme = "whatsapp:"

// messageCreator is the part of the Twilio REST API the sender uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Sender delivers WhatsApp messages through the Twilio Messages API.
type Sender struct {
	api  messageCreator
	from string
	to   string
}

// NewSender builds a sender with default from/to addresses. Addresses
// without a channel prefix are sent as WhatsApp numbers.
func NewSender(accountSID, authToken, from, to string, timeout time.Duration) *Sender {
	client := twilioapi.NewRestClientWithParams(twilioapi.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Sender{api: client.Api, from: from, to: to}
}

func (s *Sender) Send(ctx context.Context, msg message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := whatsappAddress(firstNonEmpty(msg.From, s.from))
	to := whatsappAddress(firstNonEmpty(msg.To, s.to))
	if from == "" || to == "" {
		return fmt.Errorf("twilio: from and to addresses are required")
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: create message: %w", err)
	}
	if resp != nil && resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		detail := ""
		if resp.ErrorMessage != nil {
			detail = ": " + *resp.ErrorMessage
		}
		return fmt.Errorf("twilio: message rejected with code %d%s", *resp.ErrorCode, detail)
	}
	return nil
}

func whatsappAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.Contains(addr, ":") {
		return addr
	}
	return whatsappScheme + addr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
