// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chainpulse/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a cycle error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Cycle error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Cycles recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendSummary sends a cycle summary with the derived sentiment metrics.
func (c *Client) SendSummary(view *models.CycleView) error {
	return c.sendMarkdownV2(formatSummary(view))
}

// formatSummary formats a cycle view into a Telegram MarkdownV2 message.
func formatSummary(view *models.CycleView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📈 *%s option chain*\n", escapeMarkdownV2(view.Symbol))
	if view.HasUnderlying {
		fmt.Fprintf(&b, "Underlying: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f", view.Underlying)))
	}
	b.WriteString("\n")

	writePCR := func(label string, pcr models.PCRValue) {
		if pcr.Available {
			fmt.Fprintf(&b, "%s PCR \\(%s\\): *%s*\n",
				escapeMarkdownV2(label), escapeMarkdownV2(pcr.Basis),
				escapeMarkdownV2(fmt.Sprintf("%.2f", pcr.Value)))
		} else {
			fmt.Fprintf(&b, "%s PCR \\(%s\\): N/A\n",
				escapeMarkdownV2(label), escapeMarkdownV2(pcr.Basis))
		}
	}
	writePCR("Top-20", view.PCROpenInterest)
	writePCR("Top-20", view.PCRVolume)
	writePCR("Top-10", view.PCRRecorded)

	if view.MaxPainAvailable {
		fmt.Fprintf(&b, "Max pain: *%s* \\(total pain %s\\)\n",
			escapeMarkdownV2(fmt.Sprintf("%.0f", view.MaxPain.Strike)),
			escapeMarkdownV2(fmt.Sprintf("%.0f", view.MaxPain.TotalPain)))
	} else {
		b.WriteString("Max pain: N/A\n")
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
