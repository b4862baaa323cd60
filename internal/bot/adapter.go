// Package bot bridges the intake flow and request lifecycle to chat
// platforms (Discord, Slack).
package bot

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and message
// sending/receiving for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message or button press received from the chat
// platform. ButtonData is set for button presses and empty for plain text.
type InboundMessage struct {
	Platform   string    // e.g. "discord", "slack"
	ChannelID  string    // platform-specific channel identifier
	UserID     string    // platform-specific user identifier
	UserName   string    // human-readable username
	Text       string    // raw message text
	ButtonData string    // callback payload of a pressed button, e.g. "branch:3"
	Timestamp  time.Time // when the message was sent
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string   // target channel
	Text      string   // message text (platform-native formatting)
	Buttons   []Button // optional reply buttons
}

// Button is one pressable option attached to an outbound message.
type Button struct {
	Label string
	Data  string // round-trips as InboundMessage.ButtonData
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}
