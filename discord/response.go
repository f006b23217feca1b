package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"
)

// Reply is an output content with optional attachments.
type Reply struct {
	Content string
	Files   []*discordgo.File
}

func toReply(content interface{}) (*Reply, bool) {
	switch c := content.(type) {
	case string:
		return &Reply{Content: c}, true

	case *Reply:
		return c, true

	case *discordgo.MessageSend:
		return &Reply{Content: c.Content, Files: c.Files}, true

	case *sarah.CommandHelps:
		return &Reply{Content: formatHelps(c)}, true

	default:
		return nil, false
	}
}

// NewResponse creates a *sarah.CommandResponse with the given content.
// The content can be any type SendMessage understands: string, *Reply, *discordgo.MessageSend or *sarah.CommandHelps.
func NewResponse(input sarah.Input, content interface{}) (*sarah.CommandResponse, error) {
	switch input.(type) {
	case *Input, *InteractionInput:
	default:
		return nil, fmt.Errorf("%T is not a *discord.Input or *discord.InteractionInput", input)
	}

	return &sarah.CommandResponse{
		Content: content,
	}, nil
}
