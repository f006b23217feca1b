package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
)

const (
	// DISCORD is a designated sarah.BotType for Discord integration.
	DISCORD sarah.BotType = "discord"
)

// session is an internal interface that abstracts the discordgo.Session methods
// used by the Adapter. This allows mocking the session in tests.
// *discordgo.Session satisfies this interface.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// ChannelID represents a Discord channel as sarah.OutputDestination.
type ChannelID string

var _ sarah.OutputDestination = ChannelID("")

// AdapterOption defines a function signature for Adapter's functional options.
type AdapterOption func(adapter *Adapter)

// WithSession creates an AdapterOption with the given *discordgo.Session.
// Use this to inject a pre-configured session.
// If this option is not given, NewAdapter creates a new session from Config.Token.
func WithSession(session *discordgo.Session) AdapterOption {
	return func(adapter *Adapter) {
		adapter.session = session
	}
}

// WithCollector creates an AdapterOption that feeds incoming messages to the given Collector.
// If this option is not given, NewAdapter creates a new Collector.
func WithCollector(collector *Collector) AdapterOption {
	return func(adapter *Adapter) {
		adapter.collector = collector
	}
}

// WithApplicationCommands creates an AdapterOption that registers the given application commands
// in every guild the bot is available in.
func WithApplicationCommands(commands ...*discordgo.ApplicationCommand) AdapterOption {
	return func(adapter *Adapter) {
		adapter.commands = append(adapter.commands, commands...)
	}
}

// Adapter is a sarah.Adapter implementation for Discord.
type Adapter struct {
	config    *Config
	session   session
	collector *Collector
	commands  []*discordgo.ApplicationCommand
}

var _ sarah.Adapter = (*Adapter)(nil)

// NewAdapter creates a new Adapter with the given Config and options.
func NewAdapter(config *Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config: config,
	}

	for _, opt := range options {
		opt(adapter)
	}

	if adapter.collector == nil {
		adapter.collector = NewCollector()
	}

	if adapter.session == nil {
		if config.Token == "" {
			return nil, ErrEmptyToken
		}

		s, err := discordgo.New("Bot " + config.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord session: %w", err)
		}
		s.Identify.Intents = config.Intents
		adapter.session = s
	}

	return adapter, nil
}

// BotType returns a designated BotType for Discord integration.
func (a *Adapter) BotType() sarah.BotType {
	return DISCORD
}

// Collector returns the Collector incoming messages are offered to.
func (a *Adapter) Collector() *Collector {
	return a.collector
}

// Run establishes a connection with Discord and blocks until the context is canceled.
func (a *Adapter) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(s, m, enqueueInput)
	})
	a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		a.handleInteraction(s, i, enqueueInput)
	})
	a.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		a.handleGuildCreate(s, g)
	})

	err := a.session.Open()
	if err != nil {
		notifyErr(sarah.NewBotNonContinuableError(fmt.Sprintf("failed to open Discord session: %s", err.Error())))
		return
	}

	// Block until the context is canceled.
	<-ctx.Done()

	if closeErr := a.session.Close(); closeErr != nil {
		logger.Errorf("Failed to close Discord session: %+v", closeErr)
	}
}

// handleMessage processes an incoming Discord message.
// A message consumed by the Collector is not passed on to enqueueInput.
func (a *Adapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate, enqueueInput func(sarah.Input) error) {
	input, err := MessageToInput(m)
	if err != nil {
		// MessageToInput returns ErrNoAuthor for system messages with no author.
		logger.Debugf("Skipping message: %+v", err)
		return
	}

	// Ignore messages from the bot itself.
	if isSelf(s, m.Author.ID) {
		return
	}

	if a.collector.Dispatch(m.Message) {
		logger.Debugf("Message %s from %s was collected", m.ID, m.Author.ID)
		return
	}

	var enqueueErr error
	trimmed := strings.TrimSpace(input.Message())
	if a.config.HelpCommand != "" && trimmed == a.config.HelpCommand {
		enqueueErr = enqueueInput(sarah.NewHelpInput(input))
	} else if a.config.AbortCommand != "" && trimmed == a.config.AbortCommand {
		enqueueErr = enqueueInput(sarah.NewAbortInput(input))
	} else {
		enqueueErr = enqueueInput(input)
	}
	if enqueueErr != nil {
		logger.Errorf("Failed to enqueue input: %+v", enqueueErr)
	}
}

// handleInteraction converts an application command interaction to *InteractionInput and enqueues it.
func (a *Adapter) handleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate, enqueueInput func(sarah.Input) error) {
	input, err := InteractionToInput(i.Interaction)
	if err != nil {
		logger.Debugf("Skipping interaction: %+v", err)
		return
	}

	if err := enqueueInput(input); err != nil {
		logger.Errorf("Failed to enqueue interaction %s: %+v", input.CommandName(), err)
	}
}

// handleGuildCreate registers the application commands in a guild that became available.
func (a *Adapter) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if len(a.commands) == 0 || g.Guild == nil || g.Unavailable {
		return
	}

	appID := a.config.ApplicationID
	if appID == "" && s != nil && s.State != nil && s.State.User != nil {
		appID = s.State.User.ID
	}
	if appID == "" {
		logger.Warnf("Cannot register commands in guild %s: application ID is unknown", g.ID)
		return
	}

	_, err := a.session.ApplicationCommandBulkOverwrite(appID, g.ID, a.commands)
	if err != nil {
		logger.Errorf("Failed to register commands in guild %s: %+v", g.ID, err)
		return
	}
	logger.Infof("Registered %d command(s) for %s", len(a.commands), g.Name)
}

func isSelf(s *discordgo.Session, userID string) bool {
	return s != nil && s.State != nil && s.State.User != nil && userID == s.State.User.ID
}

// SendMessage sends the given message to Discord.
// Outputs destined to an *InteractionDestination are delivered privately to the invoking user.
func (a *Adapter) SendMessage(ctx context.Context, output sarah.Output) {
	switch destination := output.Destination().(type) {
	case ChannelID:
		a.sendChannelMessage(string(destination), output)

	case *InteractionDestination:
		reply, ok := toReply(output.Content())
		if !ok {
			logger.Warnf("Unexpected output %#v", output)
			return
		}
		if err := a.Respond(ctx, destination, reply); err != nil {
			logger.Errorf("Failed to respond to interaction: %+v", err)
		}

	default:
		logger.Errorf("Destination is not instance of ChannelID or *InteractionDestination. %#v.", output.Destination())
	}
}

func (a *Adapter) sendChannelMessage(channelID string, output sarah.Output) {
	switch content := output.Content().(type) {
	case string:
		_, err := a.session.ChannelMessageSend(channelID, content)
		if err != nil {
			logger.Errorf("Failed to send message to %s: %+v", channelID, err)
		}

	case *discordgo.MessageSend:
		_, err := a.session.ChannelMessageSendComplex(channelID, content)
		if err != nil {
			logger.Errorf("Failed to send complex message to %s: %+v", channelID, err)
		}

	case *Reply:
		_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: content.Content,
			Files:   content.Files,
		})
		if err != nil {
			logger.Errorf("Failed to send reply to %s: %+v", channelID, err)
		}

	case *sarah.CommandHelps:
		_, err := a.session.ChannelMessageSend(channelID, formatHelps(content))
		if err != nil {
			logger.Errorf("Failed to send help message to %s: %+v", channelID, err)
		}

	default:
		logger.Warnf("Unexpected output %#v", output)
	}
}

func formatHelps(helps *sarah.CommandHelps) string {
	lines := make([]string, 0, len(*helps))
	for _, h := range *helps {
		lines = append(lines, fmt.Sprintf("**%s**: %s", h.Identifier, h.Instruction))
	}
	return strings.Join(lines, "\n")
}

// Respond privately answers the interaction.
// The first call sends the interaction response; later calls send follow-up messages.
func (a *Adapter) Respond(ctx context.Context, destination *InteractionDestination, reply *Reply) error {
	if destination.responded.CompareAndSwap(false, true) {
		err := a.session.InteractionRespond(destination.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: reply.Content,
				Files:   reply.Files,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}, discordgo.WithContext(ctx))
		if err != nil {
			destination.responded.Store(false)
			return fmt.Errorf("failed to respond to interaction %s: %w", destination.Interaction.ID, err)
		}
		return nil
	}

	_, err := a.session.FollowupMessageCreate(destination.Interaction, true, &discordgo.WebhookParams{
		Content: reply.Content,
		Files:   reply.Files,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send follow-up for interaction %s: %w", destination.Interaction.ID, err)
	}
	return nil
}

// GrantRole adds the role to the guild member.
func (a *Adapter) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	err := a.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to add role %s to member %s in guild %s: %w", roleID, userID, guildID, err)
	}
	return nil
}
