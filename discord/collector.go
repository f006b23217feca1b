package discord

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Filter decides whether a message is the one a Collect call waits for.
type Filter func(m *discordgo.Message) bool

// AuthorInChannel returns a Filter that accepts messages posted by userID in channelID.
func AuthorInChannel(channelID, userID string) Filter {
	return func(m *discordgo.Message) bool {
		return m.ChannelID == channelID && m.Author != nil && m.Author.ID == userID
	}
}

type subscription struct {
	filter   Filter
	resolved atomic.Bool
	message  chan *discordgo.Message
}

// Collector hands incoming messages to callers waiting for a single matching message.
type Collector struct {
	mu            sync.Mutex
	subscriptions map[*subscription]struct{}
}

// NewCollector creates a Collector with no pending subscriptions.
func NewCollector() *Collector {
	return &Collector{
		subscriptions: map[*subscription]struct{}{},
	}
}

// Collect blocks until a dispatched message satisfies filter and returns it.
// It returns ErrCollectTimeout when timeout elapses first, or ctx.Err() when ctx is done first.
// Each call consumes at most one message, and a message that loses the race against the timer is left for others.
func (c *Collector) Collect(ctx context.Context, filter Filter, timeout time.Duration) (*discordgo.Message, error) {
	sub := &subscription{
		filter:  filter,
		message: make(chan *discordgo.Message, 1),
	}

	c.mu.Lock()
	c.subscriptions[sub] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.subscriptions, sub)
		c.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-sub.message:
		return m, nil

	case <-timer.C:
		if sub.resolved.CompareAndSwap(false, true) {
			return nil, ErrCollectTimeout
		}
		// Dispatch won the race and is about to deliver.
		return <-sub.message, nil

	case <-ctx.Done():
		if sub.resolved.CompareAndSwap(false, true) {
			return nil, ctx.Err()
		}
		return <-sub.message, nil
	}
}

// Dispatch offers the message to every pending subscription and reports whether any of them consumed it.
func (c *Collector) Dispatch(m *discordgo.Message) bool {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subscriptions))
	for sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	consumed := false
	for _, sub := range subs {
		if !sub.filter(m) {
			continue
		}
		if !sub.resolved.CompareAndSwap(false, true) {
			continue
		}
		sub.message <- m
		consumed = true
	}
	return consumed
}

// Pending returns the number of Collect calls currently waiting.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscriptions)
}
