// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package telegram connects the bot to the Telegram Bot API.

Architecture:

  - Client: Implements bot.Messenger (text, HTML, voice, chat actions).
  - Poll: Long-polls updates and hands each message to a callback.
*/
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/taibuivan/newswizard/internal/bot"
	"github.com/taibuivan/newswizard/internal/platform/constants"
)

// Client wraps a Bot API connection.
type Client struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// New authenticates the bot token against the Bot API.
func New(token string, debug bool, logger *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot api: %w", err)
	}
	api.Debug = debug

	logger.Info("telegram_bot_authorized", slog.String("username", api.Self.UserName))
	return &Client{api: api, logger: logger}, nil
}

// # Outbound

// SendText sends a plain text message.
func (c *Client) SendText(_ context.Context, chatID int64, text string) error {
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// SendHTML sends a message rendered with the HTML parse mode.
func (c *Client) SendHTML(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send html message: %w", err)
	}
	return nil
}

// SendVoice uploads a local audio file as a voice message.
func (c *Client) SendVoice(_ context.Context, chatID int64, path string) error {
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FilePath(path))
	voice.ParseMode = tgbotapi.ModeHTML

	if _, err := c.api.Send(voice); err != nil {
		return fmt.Errorf("telegram: send voice: %w", err)
	}
	return nil
}

// SendRecordingVoice shows the "recording voice" indicator for a few seconds.
func (c *Client) SendRecordingVoice(_ context.Context, chatID int64) error {
	if _, err := c.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatRecordVoice)); err != nil {
		return fmt.Errorf("telegram: send chat action: %w", err)
	}
	return nil
}

// Ping checks that the Bot API still accepts the token.
func (c *Client) Ping(context.Context) error {
	if _, err := c.api.GetMe(); err != nil {
		return fmt.Errorf("telegram: get me: %w", err)
	}
	return nil
}

// # Inbound

/*
Poll receives updates until ctx is cancelled.

Description: Messages and edited messages are converted and passed to handle
in arrival order. Other update kinds are dropped.

Parameters:
  - ctx: context.Context
  - handle: func(context.Context, bot.Update) (must not block for long)
*/
func (c *Client) Poll(ctx context.Context, handle func(context.Context, bot.Update)) {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = constants.PollTimeout

	updates := c.api.GetUpdatesChan(config)
	defer c.api.StopReceivingUpdates()

	c.logger.Info("telegram_polling_started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("telegram_polling_stopped")
			return
		case raw, ok := <-updates:
			if !ok {
				return
			}
			if update, ok := toUpdate(raw); ok {
				handle(ctx, update)
			}
		}
	}
}

// toUpdate converts a Bot API update into a bot.Update.
func toUpdate(raw tgbotapi.Update) (bot.Update, bool) {
	msg := raw.Message
	if msg == nil {
		msg = raw.EditedMessage
	}
	if msg == nil || msg.Chat == nil {
		return bot.Update{}, false
	}
	// Stickers, photos and other media carry no text to act on.
	if msg.Text == "" {
		return bot.Update{}, false
	}

	update := bot.Update{
		UpdateID: raw.UpdateID,
		ChatID:   msg.Chat.ID,
		Username: msg.Chat.UserName,
		Text:     msg.Text,
	}
	if msg.From != nil {
		update.UserID = msg.From.ID
		update.LanguageCode = msg.From.LanguageCode
	}
	if update.Username == "" {
		update.Username = "Unknown User"
	}
	if msg.IsCommand() {
		update.Command = strings.ToLower(msg.Command())
	}

	return update, true
}
