package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orbitest-backend/internal/config"
)

// GroupMessenger delivers messages to a group chat. It is a fire-and-forget
// notification sink: callers treat failures as delivery failures, never as
// reasons to roll back a durable write.
type GroupMessenger interface {
	SendGroupMessage(ctx context.Context, chatID, text string) error
}

type sender struct {
	apiURL string
	token  string
	client *http.Client
}

// NewSender creates a Telegram Bot API messenger. An error is returned when
// no bot token is configured so callers can fall back gracefully.
func NewSender(cfg *config.Config) (GroupMessenger, error) {
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}
	return &sender{
		apiURL: cfg.TelegramAPIURL,
		token:  cfg.TelegramBotToken,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *sender) SendGroupMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage: unexpected status %d", resp.StatusCode)
	}
	return nil
}
