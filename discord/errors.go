package discord

import "errors"

// ErrEmptyToken indicates that no token was provided and no session was injected via WithSession.
var ErrEmptyToken = errors.New("token must be set or a session must be provided via WithSession")

// ErrNoAuthor indicates that the given message or interaction has no author.
var ErrNoAuthor = errors.New("message has no author")

// ErrNotApplicationCommand indicates that the given interaction is not an application command invocation.
var ErrNotApplicationCommand = errors.New("interaction is not an application command")

// ErrCollectTimeout indicates that no matching message arrived before the collect timeout.
var ErrCollectTimeout = errors.New("no matching message before timeout")
