// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/killfeed/internal/delivery"
	"github.com/tomtom215/killfeed/internal/models"
)

// Sender adapts a Client to delivery.Sender.
type Sender struct {
	client *Client
}

// NewSender wraps client.
func NewSender(client *Client) *Sender {
	return &Sender{client: client}
}

// Send posts msg as an embed and maps access errors to the delivery
// sentinels.
func (s *Sender) Send(ctx context.Context, channelID string, msg *delivery.Message) error {
	embed := Embed{
		Title:       msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       msg.Color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if msg.ThumbnailURL != "" {
		embed.Thumbnail = &EmbedThumbnail{URL: msg.ThumbnailURL}
	}

	_, err := s.client.CreateMessage(ctx, channelID, &MessageCreate{Embeds: []Embed{embed}})
	return classify(err)
}

// Describe looks up the channel name, guild name and owner.
func (s *Sender) Describe(ctx context.Context, dest models.Destination) (delivery.ChannelInfo, error) {
	var info delivery.ChannelInfo

	ch, err := s.client.Channel(ctx, dest.ChannelID)
	if err != nil {
		return info, classify(err)
	}
	info.ChannelName = ch.Name

	guild, err := s.client.Guild(ctx, dest.GuildID)
	if err != nil {
		return info, classify(err)
	}
	info.GuildName = guild.Name
	info.OwnerID = guild.OwnerID
	return info, nil
}

// DirectMessage opens a DM channel with the user and posts text.
func (s *Sender) DirectMessage(ctx context.Context, userID, text string) error {
	dm, err := s.client.CreateDM(ctx, userID)
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", userID, err)
	}
	if _, err := s.client.CreateMessage(ctx, dm.ID, &MessageCreate{Content: text}); err != nil {
		return fmt.Errorf("send dm to %s: %w", userID, err)
	}
	return nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	apiErr, ok := AsAPIError(err)
	switch {
	case !ok:
		return err
	case apiErr.Forbidden():
		return fmt.Errorf("%w: %v", delivery.ErrPermissionDenied, apiErr)
	case apiErr.NotFound():
		return fmt.Errorf("%w: %v", delivery.ErrChannelNotFound, apiErr)
	default:
		return err
	}
}
