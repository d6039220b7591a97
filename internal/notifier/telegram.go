package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Telegram sends run summaries via the Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	log      zerolog.Logger
}

// NewTelegram creates a telegram notifier
func NewTelegram(botToken, chatID string, log zerolog.Logger) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.With().Str("component", "telegram").Logger(),
	}
}

// Send sends a plain-text message to the configured chat
func (t *Telegram) Send(text string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	resp, err := t.client.Post(apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	t.log.Debug().Int("chars", len(text)).Msg("Telegram message sent")
	return nil
}
