package discord

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"
)

// Input is a sarah.Input implementation that represents a received Discord message.
type Input struct {
	Event     *discordgo.MessageCreate
	senderKey string
	text      string
	sentAt    time.Time
	channelID ChannelID
}

var _ sarah.Input = (*Input)(nil)

// SenderKey returns a unique key representing the sender in the channel.
func (i *Input) SenderKey() string {
	return i.senderKey
}

// Message returns the received text.
func (i *Input) Message() string {
	return i.text
}

// SentAt returns when the message was sent.
func (i *Input) SentAt() time.Time {
	return i.sentAt
}

// ReplyTo returns the Discord channel where the message was received.
func (i *Input) ReplyTo() sarah.OutputDestination {
	return i.channelID
}

// MessageToInput converts a *discordgo.MessageCreate event to *Input.
func MessageToInput(m *discordgo.MessageCreate) (*Input, error) {
	if m.Author == nil {
		return nil, ErrNoAuthor
	}

	return &Input{
		Event:     m,
		senderKey: fmt.Sprintf("%s_%s", m.ChannelID, m.Author.ID),
		text:      m.Content,
		sentAt:    m.Timestamp,
		channelID: ChannelID(m.ChannelID),
	}, nil
}

// InteractionDestination represents the invoker of an interaction as sarah.OutputDestination.
// Outputs sent to it are visible only to the invoker.
type InteractionDestination struct {
	Interaction *discordgo.Interaction
	responded   atomic.Bool
}

var _ sarah.OutputDestination = (*InteractionDestination)(nil)

// NewInteractionDestination creates an InteractionDestination for the given interaction.
func NewInteractionDestination(i *discordgo.Interaction) *InteractionDestination {
	return &InteractionDestination{Interaction: i}
}

// Responded reports whether the interaction response has already been sent.
func (d *InteractionDestination) Responded() bool {
	return d.responded.Load()
}

// InteractionInput is a sarah.Input implementation that represents an application command invocation.
// Its Message is the command name prefixed with a slash, e.g. "/verify".
type InteractionInput struct {
	Event       *discordgo.Interaction
	GuildID     string
	ChannelID   string
	UserID      string
	name        string
	options     map[string]*discordgo.ApplicationCommandInteractionDataOption
	sentAt      time.Time
	destination *InteractionDestination
}

var _ sarah.Input = (*InteractionInput)(nil)

// SenderKey returns a unique key representing the invoker in the channel.
func (i *InteractionInput) SenderKey() string {
	return fmt.Sprintf("%s_%s", i.ChannelID, i.UserID)
}

// Message returns the invoked command as "/<name>".
func (i *InteractionInput) Message() string {
	return "/" + i.name
}

// SentAt returns when the command was invoked.
func (i *InteractionInput) SentAt() time.Time {
	return i.sentAt
}

// ReplyTo returns the private destination of the invoker.
func (i *InteractionInput) ReplyTo() sarah.OutputDestination {
	return i.destination
}

// Destination returns the same value as ReplyTo without the interface conversion.
func (i *InteractionInput) Destination() *InteractionDestination {
	return i.destination
}

// CommandName returns the name of the invoked command.
func (i *InteractionInput) CommandName() string {
	return i.name
}

// RoleOption returns the ID of the role given for the named option.
func (i *InteractionInput) RoleOption(name string) (string, bool) {
	opt, ok := i.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionRole {
		return "", false
	}

	roleID, ok := opt.Value.(string)
	if !ok || roleID == "" {
		return "", false
	}
	return roleID, true
}

// InteractionToInput converts an application command *discordgo.Interaction to *InteractionInput.
func InteractionToInput(i *discordgo.Interaction) (*InteractionInput, error) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil, ErrNotApplicationCommand
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return nil, ErrNoAuthor
	}

	data := i.ApplicationCommandData()
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}

	sentAt, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		sentAt = time.Now()
	}

	return &InteractionInput{
		Event:       i,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		UserID:      user.ID,
		name:        data.Name,
		options:     options,
		sentAt:      sentAt,
		destination: NewInteractionDestination(i),
	}, nil
}
