// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mtproto

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gotd/td/tg"

	"github.com/taibuivan/newswizard/internal/digest"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/pkg/slice"
)

// dialogPageSize bounds the dialog list read for one digest.
const dialogPageSize = 100

// Channels lists the broadcast channels in the account's dialog list.
// Groups and private chats are skipped.
func (s *Session) Channels(ctx context.Context) ([]digest.Channel, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}

	res, err := s.client.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("mtproto: get dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch d := res.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	default:
		return nil, nil
	}

	broadcasts := slice.Filter(chats, func(chat tg.ChatClass) bool {
		channel, ok := chat.(*tg.Channel)
		return ok && channel.Broadcast
	})
	channels := slice.Map(broadcasts, func(chat tg.ChatClass) digest.Channel {
		channel := chat.(*tg.Channel)
		return digest.Channel{ID: channel.ID, AccessHash: channel.AccessHash, Title: channel.Title}
	})

	s.logger.Info("mtproto_channels_listed", slog.Int("channels", len(channels)), slog.Int("chats", len(chats)))
	return channels, nil
}

// Posts returns the channel's text posts published after since, newest first.
func (s *Session) Posts(ctx context.Context, channel digest.Channel, since time.Time) ([]digest.Post, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}

	peer := &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}
	var posts []digest.Post
	offsetID := 0

	for {
		res, err := s.client.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    constants.ChannelHistoryBatch,
		})
		if err != nil {
			return nil, fmt.Errorf("mtproto: get history of %q: %w", channel.Title, err)
		}

		var messages []tg.MessageClass
		switch m := res.(type) {
		case *tg.MessagesMessages:
			messages = m.Messages
		case *tg.MessagesMessagesSlice:
			messages = m.Messages
		case *tg.MessagesChannelMessages:
			messages = m.Messages
		default:
			return posts, nil
		}

		for _, message := range messages {
			offsetID = message.GetID()

			msg, ok := message.(*tg.Message)
			if !ok {
				continue
			}

			date := time.Unix(int64(msg.Date), 0)
			if date.Before(since) {
				return posts, nil
			}
			if msg.Message != "" {
				posts = append(posts, digest.Post{Date: date, Text: msg.Message})
			}
		}

		if len(messages) < constants.ChannelHistoryBatch {
			return posts, nil
		}
	}
}
