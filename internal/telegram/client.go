// Package telegram provides a client for sending opportunity alerts via the
// Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pricesight/internal/decision"
	"pricesight/internal/models"
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

// SendError sends a research error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(runErr error) error {
	text := fmt.Sprintf("⚠️ *Research error*\n`%s`", escapeMarkdownV2(runErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendOpportunity sends an alert for one analyzed listing.
func (c *Client) SendOpportunity(listing decision.Listing, payload *models.DecisionPayload, url string) error {
	return c.sendMarkdownV2(formatOpportunity(listing, payload, url))
}

// SendArbitrage sends an alert for an import/export opportunity.
func (c *Client) SendArbitrage(query string, opp *models.ArbitrageOpportunity) error {
	return c.sendMarkdownV2(formatArbitrage(query, opp))
}

func formatOpportunity(listing decision.Listing, payload *models.DecisionPayload, url string) string {
	emoji := "⚪"
	switch payload.Recommendation {
	case models.RecommendBuy:
		emoji = "🟢"
	case models.RecommendWatch:
		emoji = "🟡"
	case models.RecommendSkip:
		emoji = "🔴"
	}

	profit := payload.EstimatedValueMax - listing.Price

	var b strings.Builder
	fmt.Fprintf(&b, "%s *NUOVA OPPORTUNITÀ* %s\n\n", emoji, emoji)
	fmt.Fprintf(&b, "📦 *%s*\n\n", escapeMarkdownV2(listing.Title))
	fmt.Fprintf(&b, "💰 *Prezzo:* €%s\n", escapeMarkdownV2(fmt.Sprintf("%.0f", listing.Price)))
	fmt.Fprintf(&b, "📈 *Valore stimato:* €%s \\- €%s\n",
		escapeMarkdownV2(fmt.Sprintf("%.0f", payload.EstimatedValueMin)),
		escapeMarkdownV2(fmt.Sprintf("%.0f", payload.EstimatedValueMax)))
	fmt.Fprintf(&b, "💵 *Profitto potenziale:* \\+€%s \\(\\+%s%%\\)\n\n",
		escapeMarkdownV2(fmt.Sprintf("%.0f", profit)),
		escapeMarkdownV2(fmt.Sprintf("%.0f", payload.MarginPercentage)))
	fmt.Fprintf(&b, "🎯 *Score:* %d/100\n", payload.Score)
	fmt.Fprintf(&b, "✅ *Raccomandazione:* %s\n\n", payload.Recommendation)
	fmt.Fprintf(&b, "📝 %s", escapeMarkdownV2(payload.Reasoning))

	if payload.Category != "" {
		fmt.Fprintf(&b, "\n📂 *Categoria:* %s", escapeMarkdownV2(payload.Category))
	}
	if payload.Brand != "" {
		fmt.Fprintf(&b, "\n🏷️ *Brand:* %s", escapeMarkdownV2(payload.Brand))
	}
	if listing.Location != "" {
		fmt.Fprintf(&b, "\n📍 *Località:* %s", escapeMarkdownV2(listing.Location))
	}
	if url != "" {
		fmt.Fprintf(&b, "\n\n🔗 [Vedi annuncio](%s)", url)
	}
	return b.String()
}

func formatArbitrage(query string, opp *models.ArbitrageOpportunity) string {
	emoji := "🔴"
	if opp.Profitable {
		emoji = "🟢"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *ARBITRAGGIO %s* %s\n\n",
		emoji, escapeMarkdownV2(strings.ToUpper(opp.Direction)), emoji)
	fmt.Fprintf(&b, "📦 *%s*\n\n", escapeMarkdownV2(query))
	fmt.Fprintf(&b, "🌍 %s → %s\n",
		escapeMarkdownV2(opp.SourceCountry), escapeMarkdownV2(opp.TargetCountry))
	fmt.Fprintf(&b, "💰 *Acquisto:* €%s\n", escapeMarkdownV2(fmt.Sprintf("%.0f", opp.BuyPrice)))
	fmt.Fprintf(&b, "📈 *Vendita:* €%s\n", escapeMarkdownV2(fmt.Sprintf("%.0f", opp.SellPrice)))
	fmt.Fprintf(&b, "💵 *Margine:* €%s \\(%s%%\\)",
		escapeMarkdownV2(fmt.Sprintf("%.0f", opp.Margin)),
		escapeMarkdownV2(fmt.Sprintf("%.1f", opp.MarginPct)))
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
