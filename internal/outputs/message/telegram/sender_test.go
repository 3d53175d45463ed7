package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bakkerme/jobalert/internal/outputs/message"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestSenderSendsToConfiguredChat(t *testing.T) {
	bot := &fakeBot{}
	sender := NewSender("token", 42, 0)
	sender.bot = bot

	if err := sender.Send(context.Background(), message.Message{Body: "new job"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != 42 || bot.sent[0].Text != "new job" {
		t.Fatalf("unexpected sent messages %+v", bot.sent)
	}

	if err := sender.Send(context.Background(), message.Message{To: "-100", Body: "x"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if bot.sent[1].ChatID != -100 {
		t.Fatalf("expected override chat id, got %d", bot.sent[1].ChatID)
	}
}

func TestSenderErrors(t *testing.T) {
	sender := NewSender("token", 42, 0)
	sender.bot = &fakeBot{err: errors.New("Too Many Requests: retry after 5")}
	if err := sender.Send(context.Background(), message.Message{Body: "x"}); err == nil {
		t.Fatalf("expected send error")
	}

	if err := sender.Send(context.Background(), message.Message{To: "abc"}); err == nil {
		t.Fatalf("expected invalid chat id error")
	}

	noToken := NewSender("", 42, 0)
	if err := noToken.Send(context.Background(), message.Message{Body: "x"}); err == nil {
		t.Fatalf("expected missing token error")
	}

	noChat := NewSender("token", 0, 0)
	noChat.bot = &fakeBot{}
	if err := noChat.Send(context.Background(), message.Message{Body: "x"}); err == nil {
		t.Fatalf("expected missing chat error")
	}
}
