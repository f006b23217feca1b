package bot

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/captchagate/captchagate/discord"
	"github.com/captchagate/captchagate/verification"
)

const (
	// VerifyChannelCommand designates the invoking channel and a role for verification.
	VerifyChannelCommand = "verify-channel"

	// VerifyCommand starts a verification session.
	VerifyCommand = "verify"

	roleOption = "role"
)

var (
	verifyChannelPattern = regexp.MustCompile(`^/verify-channel$`)
	verifyPattern        = regexp.MustCompile(`^/verify$`)
)

// ApplicationCommands returns the slash commands to register in every guild.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	manageRoles := int64(discordgo.PermissionManageRoles)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     VerifyChannelCommand,
			Description:              "Set the verification channel and role",
			DefaultMemberPermissions: &manageRoles,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        roleOption,
					Description: "Role to give after verifying",
					Required:    true,
				},
			},
		},
		{
			Name:        VerifyCommand,
			Description: "Start the verification process",
		},
	}
}

// Commands serves the verification slash commands.
type Commands struct {
	registry  *verification.Registry
	service   *verification.Service
	responder Responder
}

// NewCommands creates Commands backed by the given registry and service.
// Responder delivers the captcha and the session outcome to the member.
func NewCommands(registry *verification.Registry, service *verification.Service, responder Responder) *Commands {
	return &Commands{
		registry:  registry,
		service:   service,
		responder: responder,
	}
}

// Register registers both commands with go-sarah.
func (c *Commands) Register() {
	sarah.RegisterCommandProps(c.VerifyChannelProps())
	sarah.RegisterCommandProps(c.VerifyProps())
}

// VerifyChannelProps builds the *sarah.CommandProps of /verify-channel.
func (c *Commands) VerifyChannelProps() *sarah.CommandProps {
	return sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier(VerifyChannelCommand).
		MatchPattern(verifyChannelPattern).
		Func(c.VerifyChannel).
		Instruction("Run /verify-channel role:<role> in the channel where members should verify.").
		MustBuild()
}

// VerifyProps builds the *sarah.CommandProps of /verify.
func (c *Commands) VerifyProps() *sarah.CommandProps {
	return sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier(VerifyCommand).
		MatchPattern(verifyPattern).
		Func(c.Verify).
		Instruction("Run /verify in the verification channel and type the captcha text to get verified.").
		MustBuild()
}

// VerifyChannel makes the invoking channel the guild's verification channel and stores the chosen role.
func (c *Commands) VerifyChannel(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	in, ok := input.(*discord.InteractionInput)
	if !ok {
		return discord.NewResponse(input, "Use the /verify-channel slash command.")
	}

	if in.GuildID == "" {
		return discord.NewResponse(input, "This command can only be used in a server.")
	}

	roleID, ok := in.RoleOption(roleOption)
	if !ok {
		return discord.NewResponse(input, "Usage: /verify-channel role:<role>")
	}

	c.registry.Set(ctx, in.GuildID, in.ChannelID, roleID)
	logger.Infof("Verification set for guild %s: channel %s, role %s", in.GuildID, in.ChannelID, roleID)

	return discord.NewResponse(input, fmt.Sprintf("✅ Verification set!\nChannel: <#%s>\nRole: <@&%s>", in.ChannelID, roleID))
}

// Verify starts a verification session for the invoker.
// The captcha and the outcome are sent through the Responder, so no response is returned on success.
func (c *Commands) Verify(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	in, ok := input.(*discord.InteractionInput)
	if !ok {
		return discord.NewResponse(input, "Use the /verify slash command.")
	}

	req := verification.Request{
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
		UserID:    in.UserID,
	}
	conv := &conversation{
		responder:   c.responder,
		destination: in.Destination(),
	}

	_, err := c.service.Start(ctx, req, conv)
	if err == nil {
		return nil, nil
	}

	logger.Infof("Verification for user %s in guild %s not started: %+v", in.UserID, in.GuildID, err)
	return discord.NewResponse(input, verification.UserMessage(err))
}
