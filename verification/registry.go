package verification

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"
)

// GuildConfig is the verification setup of a single guild.
type GuildConfig struct {
	// ChannelID is the channel where members must run /verify and answer the captcha.
	ChannelID string `json:"channel_id" yaml:"channel_id"`

	// RoleID is the role granted to members who pass verification.
	RoleID string `json:"role_id" yaml:"role_id"`
}

// Store persists GuildConfig values so they survive a restart.
type Store interface {
	SaveGuildConfig(ctx context.Context, guildID string, config *GuildConfig) error
	LoadGuildConfigs(ctx context.Context) (map[string]*GuildConfig, error)
}

// RegistryOption defines a function signature for Registry's functional options.
type RegistryOption func(registry *Registry)

// RegistryWithStore creates a RegistryOption that writes every Set through to the given Store.
func RegistryWithStore(store Store) RegistryOption {
	return func(registry *Registry) {
		registry.store = store
	}
}

// Registry holds the GuildConfig of every configured guild.
// It is safe for concurrent use.
type Registry struct {
	// writeMu serializes Set so memory and store agree on the last write.
	writeMu sync.Mutex
	mu      sync.RWMutex
	configs map[string]*GuildConfig
	store   Store
}

// NewRegistry creates an empty Registry.
func NewRegistry(options ...RegistryOption) *Registry {
	registry := &Registry{
		configs: map[string]*GuildConfig{},
	}

	for _, opt := range options {
		opt(registry)
	}

	return registry
}

// Set replaces the configuration of the given guild.
// The previous value, if any, is discarded entirely.
// A failure to persist the value is logged; the in-memory value is updated regardless.
func (r *Registry) Set(ctx context.Context, guildID, channelID, roleID string) {
	config := &GuildConfig{
		ChannelID: channelID,
		RoleID:    roleID,
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	r.configs[guildID] = config
	r.mu.Unlock()

	if r.store == nil {
		return
	}

	stored := *config
	if err := r.store.SaveGuildConfig(ctx, guildID, &stored); err != nil {
		logger.Errorf("Failed to persist verification config for guild %s: %+v", guildID, err)
	}
}

// Get returns a copy of the guild's configuration.
// The second return value is false when the guild was never configured.
func (r *Registry) Get(guildID string) (*GuildConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.configs[guildID]
	if !ok {
		return nil, false
	}

	c := *config
	return &c, true
}

// Restore loads every configuration from the Store.
// Values already set in memory take precedence over stored ones.
func (r *Registry) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	configs, err := r.store.LoadGuildConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load verification configs: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for guildID, config := range configs {
		if _, ok := r.configs[guildID]; ok {
			continue
		}
		c := *config
		r.configs[guildID] = &c
	}

	logger.Infof("Restored verification config for %d guild(s)", len(configs))
	return nil
}
