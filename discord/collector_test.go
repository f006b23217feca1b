package discord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func newMessage(channelID, userID, content string) *discordgo.Message {
	return &discordgo.Message{
		ChannelID: channelID,
		Content:   content,
		Timestamp: time.Now(),
		Author:    &discordgo.User{ID: userID},
	}
}

// waitPending blocks until the collector has n waiting subscriptions.
func waitPending(t *testing.T, c *Collector, n int) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for c.Pending() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d pending subscriptions, got %d", n, c.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAuthorInChannel(t *testing.T) {
	filter := AuthorInChannel("gate", "user-1")

	if !filter(newMessage("gate", "user-1", "abc")) {
		t.Error("Expected message from the user in the channel to match")
	}
	if filter(newMessage("general", "user-1", "abc")) {
		t.Error("Expected message in another channel not to match")
	}
	if filter(newMessage("gate", "user-2", "abc")) {
		t.Error("Expected message from another user not to match")
	}
	if filter(&discordgo.Message{ChannelID: "gate"}) {
		t.Error("Expected authorless message not to match")
	}
}

func TestCollector_Collect(t *testing.T) {
	t.Run("first matching message wins", func(t *testing.T) {
		collector := NewCollector()

		type result struct {
			m   *discordgo.Message
			err error
		}
		done := make(chan result, 1)
		go func() {
			m, err := collector.Collect(context.Background(), AuthorInChannel("gate", "user-1"), time.Second)
			done <- result{m, err}
		}()
		waitPending(t, collector, 1)

		if collector.Dispatch(newMessage("general", "user-1", "wrong channel")) {
			t.Error("Expected message in another channel not to be consumed")
		}
		if collector.Dispatch(newMessage("gate", "user-2", "wrong user")) {
			t.Error("Expected message from another user not to be consumed")
		}
		if !collector.Dispatch(newMessage("gate", "user-1", "first")) {
			t.Error("Expected matching message to be consumed")
		}
		if collector.Dispatch(newMessage("gate", "user-1", "second")) {
			t.Error("Expected a second message not to be consumed")
		}

		r := <-done
		if r.err != nil {
			t.Fatalf("Unexpected error: %+v", r.err)
		}
		if r.m.Content != "first" {
			t.Errorf("Expected %q, got %q", "first", r.m.Content)
		}

		waitPending(t, collector, 0)
	})

	t.Run("timeout", func(t *testing.T) {
		collector := NewCollector()

		m, err := collector.Collect(context.Background(), AuthorInChannel("gate", "user-1"), 10*time.Millisecond)
		if !errors.Is(err, ErrCollectTimeout) {
			t.Fatalf("Expected ErrCollectTimeout, got %+v", err)
		}
		if m != nil {
			t.Errorf("Expected nil message, got %+v", m)
		}
		if collector.Pending() != 0 {
			t.Error("Expected subscription to be removed after timeout")
		}
		if collector.Dispatch(newMessage("gate", "user-1", "late")) {
			t.Error("Expected late message not to be consumed")
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		collector := NewCollector()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := collector.Collect(ctx, AuthorInChannel("gate", "user-1"), time.Second)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %+v", err)
		}
	})

	t.Run("independent subscriptions", func(t *testing.T) {
		collector := NewCollector()

		var wg sync.WaitGroup
		got := make([]string, 2)
		for i, userID := range []string{"user-1", "user-2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, err := collector.Collect(context.Background(), AuthorInChannel("gate", userID), time.Second)
				if err == nil {
					got[i] = m.Content
				}
			}()
		}
		waitPending(t, collector, 2)

		collector.Dispatch(newMessage("gate", "user-2", "from 2"))
		collector.Dispatch(newMessage("gate", "user-1", "from 1"))
		wg.Wait()

		if got[0] != "from 1" || got[1] != "from 2" {
			t.Errorf("Unexpected deliveries: %v", got)
		}
	})

	t.Run("message racing the timer resolves exactly once", func(t *testing.T) {
		for range 50 {
			collector := NewCollector()

			type result struct {
				m   *discordgo.Message
				err error
			}
			done := make(chan result, 1)
			go func() {
				m, err := collector.Collect(context.Background(), AuthorInChannel("gate", "user-1"), time.Millisecond)
				done <- result{m, err}
			}()

			consumed := collector.Dispatch(newMessage("gate", "user-1", "answer"))
			r := <-done

			switch {
			case consumed && (r.err != nil || r.m == nil):
				t.Fatalf("Message was consumed but Collect returned %+v", r.err)
			case !consumed && !errors.Is(r.err, ErrCollectTimeout):
				t.Fatalf("Message was not consumed but Collect returned %+v", r.err)
			}
		}
	})
}
