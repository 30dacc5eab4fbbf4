// Package telegram sends new-market announcements through the Telegram Bot API.
//
// Messages use HTML formatting with link previews disabled. Delivery is a
// single attempt: the caller decides what to do with a failure, and the poll
// loop only logs it.
package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/pendlewatch/internal/models"
)

const messageHeader = "<b>New market on Pendle Finance!</b>\n\n"

// Client handles Telegram notifications
type Client struct {
	botToken    string
	chatID      string
	apiEndpoint string
	httpClient  *http.Client

	// bot is created on first use and reused afterwards
	bot *tgbotapi.BotAPI
}

// NewClient creates a new Telegram client. A missing token or chat ID yields a
// disabled client whose Send does nothing. No network call is made here.
func NewClient(botToken, chatID, apiEndpoint string, timeout time.Duration) *Client {
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	return &Client{
		botToken:    botToken,
		chatID:      chatID,
		apiEndpoint: apiEndpoint,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has credentials to send with
func (c *Client) Enabled() bool {
	return c.botToken != "" && c.chatID != ""
}

// Send delivers text to the configured chat
func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := c.newMessage(text)
	if err != nil {
		return err
	}

	bot, err := c.connect()
	if err != nil {
		return err
	}

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// connect returns the cached bot, creating it on first use. A failed attempt
// is not cached, so the next send tries again.
func (c *Client) connect() (*tgbotapi.BotAPI, error) {
	if c.bot != nil {
		return c.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(c.botToken, c.apiEndpoint, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	c.bot = bot
	return bot, nil
}

// newMessage builds an HTML message for a numeric chat ID or an @channel name.
func (c *Client) newMessage(text string) (tgbotapi.MessageConfig, error) {
	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(c.chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else if strings.HasPrefix(c.chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(c.chatID, text)
	} else {
		return msg, fmt.Errorf("invalid chat ID %q: must be numeric or an @channel name", c.chatID)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg, nil
}

// FormatNewMarkets renders one combined announcement: a bold name line and a
// monospace ID line per market.
func FormatNewMarkets(markets []models.Market) string {
	var b strings.Builder
	b.WriteString(messageHeader)
	for _, m := range markets {
		fmt.Fprintf(&b, "• <b>%s</b>\nID: <code>%s</code>\n\n", html.EscapeString(m.Name), html.EscapeString(m.ID))
	}
	return b.String()
}

// NotifyNewMarkets sends one combined announcement for markets
func (c *Client) NotifyNewMarkets(ctx context.Context, markets []models.Market) error {
	if len(markets) == 0 {
		return nil
	}
	return c.Send(ctx, FormatNewMarkets(markets))
}
