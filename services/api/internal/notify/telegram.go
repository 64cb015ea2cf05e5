// Package notify delivers buyer and operator messages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Telegram sends messages through the Bot API. Buyer ids are chat ids.
type Telegram struct {
	client    *resty.Client
	operators []string
	logger    zerolog.Logger
}

type TelegramOption func(*Telegram)

func WithTelegramLogger(logger zerolog.Logger) TelegramOption {
	return func(t *Telegram) {
		t.logger = logger
	}
}

// WithRetries retries transport failures n more times.
func WithRetries(n int) TelegramOption {
	return func(t *Telegram) {
		t.client.SetRetryCount(n)
	}
}

func NewTelegram(apiURL, token string, operatorChatIDs []string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		client: resty.New().
			SetBaseURL(strings.TrimRight(apiURL, "/") + "/bot" + token).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
		operators: operatorChatIDs,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (t *Telegram) NotifyBuyer(ctx context.Context, buyerID, message string) error {
	return t.send(ctx, buyerID, message)
}

// NotifyOperators sends to every operator chat and reports every failure.
func (t *Telegram) NotifyOperators(ctx context.Context, message string) error {
	var errs []error
	for _, chatID := range t.operators {
		if err := t.send(ctx, chatID, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return errors.New("telegram: empty chat id")
	}
	var result, apiErr apiResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: chatID, Text: text}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", chatID, err)
	}
	if resp.IsError() || !result.OK {
		desc := apiErr.Description
		if desc == "" {
			desc = resp.Status()
		}
		return fmt.Errorf("telegram send to %s: %s", chatID, desc)
	}
	t.logger.Debug().Str("chat_id", chatID).Msg("telegram message sent")
	return nil
}
