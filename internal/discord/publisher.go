// Package discord adapts discordgo into the publisher capability the
// cycle controller consumes: chunked channel sends, topic writes, and
// bridge presence updates.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/af-inet/PZDiscordEventPublisher/internal/faults"
	"github.com/af-inet/PZDiscordEventPublisher/internal/metrics"
	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/retry"
)

var startupPolicy = retry.Policy{
	MaxAttempts:      5,
	InitialBackoff:   1 * time.Second,
	RateLimitBackoff: 5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Discord startup attempt failed, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
	},
}

// Client wraps an open discordgo session bound to one target channel.
type Client struct {
	session   *discordgo.Session
	channelID string
}

// Connect opens a gateway session and resolves the target channel,
// retrying transient failures. The channel must be text-postable;
// anything else is a fatal startup fault.
func Connect(ctx context.Context, token, channelID string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, faults.Startup("failed to create discord session", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	err = retry.DoVoid(ctx, startupPolicy, classify, session.Open)
	if err != nil {
		return nil, faults.Startup("failed to open discord gateway session", err)
	}

	channel, err := retry.Do(ctx, startupPolicy, classify, func() (*discordgo.Channel, error) {
		return session.Channel(channelID)
	})
	if err != nil {
		_ = session.Close()
		return nil, faults.Startup("failed to resolve channel", err).
			WithContext("channel_id", channelID)
	}

	if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
		_ = session.Close()
		return nil, faults.Startup("channel is not a text channel", nil).
			WithContext("channel_id", channelID).
			WithContext("channel_type", int(channel.Type))
	}

	slog.Info("Resolved target channel", "channel_id", channelID, "channel_name", channel.Name)
	return &Client{session: session, channelID: channelID}, nil
}

// SendMessage posts one chunk of event text to the target channel.
func (c *Client) SendMessage(text string) error {
	if _, err := c.session.ChannelMessageSend(c.channelID, text); err != nil {
		metrics.PublishErrors.WithLabelValues("send").Inc()
		return faults.Publish("failed to send message chunk", err).
			WithContext("channel_id", c.channelID)
	}
	metrics.ChunksPublished.Inc()
	return nil
}

// SetTopic writes the channel topic.
func (c *Client) SetTopic(topic string) error {
	if _, err := c.session.ChannelEdit(c.channelID, &discordgo.ChannelEdit{Topic: topic}); err != nil {
		metrics.PublishErrors.WithLabelValues("topic").Inc()
		return faults.Publish("failed to update channel topic", err).
			WithContext("channel_id", c.channelID)
	}
	metrics.TopicUpdates.Inc()
	return nil
}

// SetPresence sets the bridge's own activity text.
func (c *Client) SetPresence(text string) error {
	if err := c.session.UpdateGameStatus(0, text); err != nil {
		metrics.PublishErrors.WithLabelValues("presence").Inc()
		return faults.Publish("failed to update presence", err)
	}
	return nil
}

// Close tears down the gateway session.
func (c *Client) Close() error {
	return c.session.Close()
}

// classify maps discord REST errors onto retry actions: rate limits wait
// longer, auth and permission errors are permanent, everything else is
// assumed transient.
func classify(err error) retry.Action {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch {
		case restErr.Response.StatusCode == http.StatusTooManyRequests:
			return retry.After
		case restErr.Response.StatusCode >= http.StatusInternalServerError:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	return retry.Retry
}
