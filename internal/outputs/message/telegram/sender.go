package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bakkerme/jobalert/internal/outputs/message"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender posts messages to a Telegram chat. The bot is created on first use,
// since creating it validates the token over the network.
type Sender struct {
	token  string
	chatID int64
	client *http.Client

	mu  sync.Mutex
	bot botSender
}

func NewSender(token string, chatID int64, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Sender{
		token:  strings.TrimSpace(token),
		chatID: chatID,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Sender) Send(ctx context.Context, msg message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := s.chatID
	if to := strings.TrimSpace(msg.To); to != "" {
		parsed, err := strconv.ParseInt(to, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram: invalid chat id %q: %w", to, err)
		}
		chatID = parsed
	}
	if chatID == 0 {
		return fmt.Errorf("telegram: chat id is required")
	}

	bot, err := s.botAPI()
	if err != nil {
		return err
	}
	out := tgbotapi.NewMessage(chatID, msg.Body)
	out.DisableWebPagePreview = true
	if _, err := bot.Send(out); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

func (s *Sender) botAPI() (botSender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot != nil {
		return s.bot, nil
	}
	if s.token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(s.token, tgbotapi.APIEndpoint, s.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	s.bot = bot
	return bot, nil
}
