package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"limitswap/internal/util"
)

const (
	telegramAPIBase   = "https://api.telegram.org"
	telegramSendRetry = 3
	telegramSendDelay = 2 * time.Second
)

// TelegramNotifier posts event messages to a Telegram chat via the bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewTelegramNotifier creates a Telegram notifier for the given bot token and
// chat.
func NewTelegramNotifier(token, chatID string, log *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// Notify sends the formatted event message. Delivery failures are logged,
// never surfaced: notifications are best-effort.
func (n *TelegramNotifier) Notify(ctx context.Context, ev Event) {
	text := Format(ev)

	err := util.Retry(ctx, telegramSendRetry, telegramSendDelay, func() error {
		return n.send(ctx, text)
	})
	if err != nil {
		n.log.Error("telegram notification failed",
			"type", string(ev.Type), "order_id", ev.Order.ID, "error", err)
	}
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
