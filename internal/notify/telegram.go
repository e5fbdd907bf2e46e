package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"radar-watch-service/internal/gateway"
)

const DefaultTelegramURL = "https://api.telegram.org"

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramChannel sends HTML messages through the Telegram Bot API.
type TelegramChannel struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

func NewTelegramChannel(baseURL, token string, timeout time.Duration, log zerolog.Logger) *TelegramChannel {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return &TelegramChannel{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    gateway.NewHTTPClient(timeout),
		log:     log,
	}
}

func (t *TelegramChannel) Send(ctx context.Context, chatID, text string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return ErrInvalidDestination
	}

	payload, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/bot"+t.token+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		// the request URL carries the bot token
		return fmt.Errorf("telegram sendMessage: %w", redact(err, t.token))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var tr telegramResponse
		_ = json.Unmarshal(body, &tr)
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, tr.Description)
	}

	t.log.Debug().Str("chat_id", chatID).Msg("telegram message delivered")
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
