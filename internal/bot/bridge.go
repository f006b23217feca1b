package bot

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/captchagate/captchagate/discord"
	"github.com/captchagate/captchagate/verification"
)

// Responder answers interactions privately.
// *discord.Adapter satisfies this interface.
type Responder interface {
	Respond(ctx context.Context, destination *discord.InteractionDestination, reply *discord.Reply) error
}

// conversation is a verification.Conversation bound to a single interaction.
type conversation struct {
	responder   Responder
	destination *discord.InteractionDestination
}

var _ verification.Conversation = (*conversation)(nil)

func (c *conversation) Reply(ctx context.Context, content string, image *verification.Image) error {
	reply := &discord.Reply{Content: content}
	if image != nil {
		reply.Files = []*discordgo.File{
			{
				Name:        image.Name,
				ContentType: image.ContentType,
				Reader:      bytes.NewReader(image.Data),
			},
		}
	}
	return c.responder.Respond(ctx, c.destination, reply)
}

func (c *conversation) FollowUp(ctx context.Context, content string) error {
	return c.responder.Respond(ctx, c.destination, &discord.Reply{Content: content})
}

// inbox is a verification.Inbox backed by the adapter's Collector.
type inbox struct {
	collector *discord.Collector
}

var _ verification.Inbox = (*inbox)(nil)

// NewInbox creates a verification.Inbox that waits on the given Collector.
func NewInbox(collector *discord.Collector) verification.Inbox {
	return &inbox{collector: collector}
}

func (i *inbox) NextMessage(ctx context.Context, channelID, userID string, timeout time.Duration) (string, bool, error) {
	m, err := i.collector.Collect(ctx, discord.AuthorInChannel(channelID, userID), timeout)
	if errors.Is(err, discord.ErrCollectTimeout) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Content, true, nil
}
