package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklahomer/go-kasumi/logger"
)

// Image is a file attached to a reply.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Conversation is the private channel between the bot and the member who asked for verification.
type Conversation interface {
	// Reply sends the first response to the member's request.
	Reply(ctx context.Context, content string, image *Image) error

	// FollowUp sends a later message to the member.
	FollowUp(ctx context.Context, content string) error
}

// RoleGranter grants a guild role to a member.
type RoleGranter interface {
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
}

// Inbox delivers messages posted by members.
type Inbox interface {
	// NextMessage waits for the next message userID posts in channelID and returns its text.
	// ok is false when the timeout elapsed first.
	NextMessage(ctx context.Context, channelID, userID string, timeout time.Duration) (text string, ok bool, err error)
}

// Recorder observes session outcomes.
type Recorder interface {
	SessionStarted()
	SessionRejected(err error)
	SessionResolved(state State, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                      {}
func (nopRecorder) SessionRejected(error)                {}
func (nopRecorder) SessionResolved(State, time.Duration) {}

// MaxTimeout is the longest Config.Timeout accepted.
// Discord invalidates interaction tokens after 15 minutes, and the outcome is sent as a follow-up.
const MaxTimeout = 14 * time.Minute

// Config contains configuration variables for the Service.
type Config struct {
	// Timeout is how long a member has to answer once the captcha is delivered.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// NewConfig creates and returns a new Config instance with default settings.
func NewConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}

// ServiceOption defines a function signature for Service's functional options.
type ServiceOption func(service *Service)

// WithRenderer creates a ServiceOption that replaces the default ImageRenderer.
func WithRenderer(renderer Renderer) ServiceOption {
	return func(service *Service) {
		service.renderer = renderer
	}
}

// WithGenerator creates a ServiceOption that replaces the default Generator.
func WithGenerator(generator *Generator) ServiceOption {
	return func(service *Service) {
		service.generator = generator
	}
}

// WithRecorder creates a ServiceOption that reports session outcomes to the given Recorder.
func WithRecorder(recorder Recorder) ServiceOption {
	return func(service *Service) {
		service.recorder = recorder
	}
}

// Service starts and drives verification sessions.
type Service struct {
	config    *Config
	registry  *Registry
	inbox     Inbox
	granter   RoleGranter
	generator *Generator
	renderer  Renderer
	recorder  Recorder

	mu      sync.Mutex
	pending map[string]*Session
}

// NewService creates a new Service with the given Config, collaborators and options.
func NewService(config *Config, registry *Registry, inbox Inbox, granter RoleGranter, options ...ServiceOption) (*Service, error) {
	if config.Timeout <= 0 || config.Timeout > MaxTimeout {
		return nil, fmt.Errorf("timeout must be between 0 and %s: %s", MaxTimeout, config.Timeout)
	}

	service := &Service{
		config:    config,
		registry:  registry,
		inbox:     inbox,
		granter:   granter,
		generator: NewGenerator(),
		recorder:  nopRecorder{},
		pending:   map[string]*Session{},
	}

	for _, opt := range options {
		opt(service)
	}

	if service.renderer == nil {
		renderer, err := NewImageRenderer(NewRenderConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		service.renderer = renderer
	}

	return service, nil
}

// Start begins a verification session for the requester.
//
// The guild must be configured and the request must come from the configured channel;
// otherwise ErrNotConfigured or ErrWrongChannel is returned and nothing is generated.
// On success the captcha has been delivered through conv and the answer is awaited in the background.
// The outcome is reported through conv and can be observed via the returned Session.
func (s *Service) Start(ctx context.Context, req Request, conv Conversation) (*Session, error) {
	config, ok := s.registry.Get(req.GuildID)
	if !ok {
		s.recorder.SessionRejected(ErrNotConfigured)
		return nil, ErrNotConfigured
	}

	if req.ChannelID != config.ChannelID {
		s.recorder.SessionRejected(ErrWrongChannel)
		return nil, ErrWrongChannel
	}

	session := newSession(uuid.New().String(), req, config)
	if !s.claim(session) {
		s.recorder.SessionRejected(ErrSessionInProgress)
		return nil, ErrSessionInProgress
	}

	challenge, err := s.newChallenge()
	if err != nil {
		s.release(session)
		s.recorder.SessionRejected(err)
		return nil, err
	}
	session.challenge = challenge

	image := &Image{
		Name:        "captcha.png",
		ContentType: "image/png",
		Data:        challenge.Image,
	}
	if err := conv.Reply(ctx, promptMessage(s.config.Timeout), image); err != nil {
		s.release(session)
		err = fmt.Errorf("failed to deliver captcha: %w", err)
		s.recorder.SessionRejected(err)
		return nil, err
	}

	session.await(time.Now().Add(s.config.Timeout))
	s.recorder.SessionStarted()
	logger.Infof("Verification session %s started for user %s in guild %s", session.ID, session.UserID, session.GuildID)

	go s.await(ctx, session, conv)

	return session, nil
}

func (s *Service) newChallenge() (*Challenge, error) {
	text, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}

	image, err := s.renderer.Render(text)
	if err != nil {
		return nil, fmt.Errorf("failed to render captcha: %w", err)
	}

	return &Challenge{
		Text:  text,
		Image: image,
	}, nil
}

// await waits for the member's answer and resolves the session.
func (s *Service) await(ctx context.Context, session *Session, conv Conversation) {
	text, ok, err := s.inbox.NextMessage(ctx, session.ChannelID, session.UserID, s.config.Timeout)

	var state State
	var reason error
	var reply string
	switch {
	case err != nil:
		state, reason = StateCanceled, err

	case !ok:
		state, reason, reply = StateFailedTimeout, ErrTimeout, timeoutMessage

	case !Matches(session.challenge.Text, text):
		state, reason, reply = StateFailedWrongAnswer, ErrWrongAnswer, wrongAnswerMessage

	default:
		if grantErr := s.granter.GrantRole(ctx, session.GuildID, session.UserID, session.RoleID); grantErr != nil {
			state, reason, reply = StateFailedRoleGrant, fmt.Errorf("%w: %w", ErrRoleGrant, grantErr), roleGrantMessage
			logger.Errorf("Failed to grant role %s to user %s in guild %s: %+v", session.RoleID, session.UserID, session.GuildID, grantErr)
		} else {
			state, reply = StateSucceeded, successMessage(session.RoleID)
		}
	}

	s.release(session)

	if reply != "" {
		if err := conv.FollowUp(ctx, reply); err != nil {
			logger.Errorf("Failed to report verification result to user %s: %+v", session.UserID, err)
		}
	}

	s.recorder.SessionResolved(state, time.Since(session.StartedAt))
	logger.Infof("Verification session %s resolved as %s", session.ID, state)
	session.resolve(state, reason)
}

func sessionKey(guildID, userID string) string {
	return fmt.Sprintf("%s_%s", guildID, userID)
}

// claim registers the session as the member's pending one.
// It returns false when another session of the same member in the same guild is unresolved.
func (s *Service) claim(session *Session) bool {
	key := sessionKey(session.GuildID, session.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[key]; ok {
		return false
	}
	s.pending[key] = session
	return true
}

func (s *Service) release(session *Session) {
	key := sessionKey(session.GuildID, session.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] == session {
		delete(s.pending, key)
	}
}
