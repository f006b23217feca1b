package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"
)

func TestMessageToInput(t *testing.T) {
	t.Run("nil author", func(t *testing.T) {
		m := &discordgo.MessageCreate{Message: &discordgo.Message{ChannelID: "channel-123", Content: "hello"}}

		_, err := MessageToInput(m)
		if err != ErrNoAuthor {
			t.Errorf("Expected ErrNoAuthor, got %+v", err)
		}
	})

	now := time.Now()
	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: "channel-123",
			Content:   "hello world",
			Timestamp: now,
			Author:    &discordgo.User{ID: "user-456", Username: "testuser"},
		},
	}

	input, err := MessageToInput(m)
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if input.SenderKey() != "channel-123_user-456" {
		t.Errorf("Expected SenderKey %q, got %q", "channel-123_user-456", input.SenderKey())
	}
	if input.Message() != "hello world" {
		t.Errorf("Expected Message %q, got %q", "hello world", input.Message())
	}
	if !input.SentAt().Equal(now) {
		t.Errorf("Expected SentAt %v, got %v", now, input.SentAt())
	}
	if dest, ok := input.ReplyTo().(ChannelID); !ok || string(dest) != "channel-123" {
		t.Errorf("Expected ReplyTo ChannelID %q, got %#v", "channel-123", input.ReplyTo())
	}
	if input.Event != m {
		t.Error("Original event should be preserved in Input")
	}
}

func TestInteractionToInput(t *testing.T) {
	t.Run("guild member invocation", func(t *testing.T) {
		i := newCommandInteraction("verify-channel", &discordgo.ApplicationCommandInteractionDataOption{
			Name:  "role",
			Type:  discordgo.ApplicationCommandOptionRole,
			Value: "member",
		})

		input, err := InteractionToInput(i)
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if input.GuildID != "guild-1" || input.ChannelID != "gate" || input.UserID != "user-1" {
			t.Errorf("Unexpected identifiers %q/%q/%q", input.GuildID, input.ChannelID, input.UserID)
		}
		if input.CommandName() != "verify-channel" {
			t.Errorf("Expected command %q, got %q", "verify-channel", input.CommandName())
		}
		if input.Message() != "/verify-channel" {
			t.Errorf("Expected Message %q, got %q", "/verify-channel", input.Message())
		}
		if input.SenderKey() != "gate_user-1" {
			t.Errorf("Expected SenderKey %q, got %q", "gate_user-1", input.SenderKey())
		}

		expectedSentAt, _ := discordgo.SnowflakeTimestamp(i.ID)
		if !input.SentAt().Equal(expectedSentAt) {
			t.Errorf("Expected SentAt %v, got %v", expectedSentAt, input.SentAt())
		}

		dest, ok := input.ReplyTo().(*InteractionDestination)
		if !ok {
			t.Fatalf("Expected *InteractionDestination, got %T", input.ReplyTo())
		}
		if dest != input.Destination() || dest.Interaction != i {
			t.Error("Expected the destination to wrap the interaction")
		}
		if dest.Responded() {
			t.Error("Expected a fresh destination")
		}

		roleID, ok := input.RoleOption("role")
		if !ok || roleID != "member" {
			t.Errorf("Expected role option %q, got %q", "member", roleID)
		}
	})

	t.Run("direct message invocation", func(t *testing.T) {
		i := newCommandInteraction("verify")
		i.GuildID = ""
		i.Member = nil
		i.User = &discordgo.User{ID: "user-2"}

		input, err := InteractionToInput(i)
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if input.UserID != "user-2" {
			t.Errorf("Expected user %q, got %q", "user-2", input.UserID)
		}
	})

	t.Run("no author", func(t *testing.T) {
		i := newCommandInteraction("verify")
		i.Member = nil

		if _, err := InteractionToInput(i); err != ErrNoAuthor {
			t.Errorf("Expected ErrNoAuthor, got %+v", err)
		}
	})

	t.Run("not an application command", func(t *testing.T) {
		i := &discordgo.Interaction{Type: discordgo.InteractionPing}

		if _, err := InteractionToInput(i); err != ErrNotApplicationCommand {
			t.Errorf("Expected ErrNotApplicationCommand, got %+v", err)
		}
	})
}

func TestInteractionInput_RoleOption(t *testing.T) {
	input, err := InteractionToInput(newCommandInteraction("verify-channel",
		&discordgo.ApplicationCommandInteractionDataOption{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "gate"},
		&discordgo.ApplicationCommandInteractionDataOption{Name: "empty", Type: discordgo.ApplicationCommandOptionRole, Value: ""},
	))
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	for _, name := range []string{"missing", "name", "empty"} {
		if roleID, ok := input.RoleOption(name); ok {
			t.Errorf("Expected no role for option %q, got %q", name, roleID)
		}
	}
}

func TestNewResponse(t *testing.T) {
	t.Run("message input", func(t *testing.T) {
		input := &Input{senderKey: "ch_user", text: ".echo hello", sentAt: time.Now(), channelID: ChannelID("ch")}

		resp, err := NewResponse(input, "hello")
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if resp.Content != "hello" {
			t.Errorf("Expected content %q, got %v", "hello", resp.Content)
		}
		if resp.UserContext != nil {
			t.Error("Expected nil UserContext")
		}
	})

	t.Run("interaction input", func(t *testing.T) {
		input, _ := InteractionToInput(newCommandInteraction("verify"))
		reply := &Reply{Content: "captcha"}

		resp, err := NewResponse(input, reply)
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if resp.Content != reply {
			t.Errorf("Expected content %+v, got %+v", reply, resp.Content)
		}
	})

	t.Run("non-discord input returns error", func(t *testing.T) {
		helpInput := sarah.NewHelpInput(&Input{senderKey: "ch_user", text: ".help", channelID: ChannelID("ch")})

		if _, err := NewResponse(helpInput, "should fail"); err == nil {
			t.Fatal("Expected an error for non-discord Input")
		}
	})
}

func TestToReply(t *testing.T) {
	files := []*discordgo.File{{Name: "captcha.png"}}
	tests := []struct {
		name     string
		content  interface{}
		expected string
		files    int
		ok       bool
	}{
		{name: "string", content: "text", expected: "text", ok: true},
		{name: "reply", content: &Reply{Content: "reply", Files: files}, expected: "reply", files: 1, ok: true},
		{name: "MessageSend", content: &discordgo.MessageSend{Content: "complex", Files: files}, expected: "complex", files: 1, ok: true},
		{name: "CommandHelps", content: &sarah.CommandHelps{{Identifier: "verify", Instruction: "Run /verify"}}, expected: "**verify**: Run /verify", ok: true},
		{name: "unexpected", content: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, ok := toReply(tt.content)
			if ok != tt.ok {
				t.Fatalf("Expected ok %t, got %t", tt.ok, ok)
			}
			if !ok {
				return
			}
			if reply.Content != tt.expected {
				t.Errorf("Expected content %q, got %q", tt.expected, reply.Content)
			}
			if len(reply.Files) != tt.files {
				t.Errorf("Expected %d file(s), got %d", tt.files, len(reply.Files))
			}
		})
	}
}
