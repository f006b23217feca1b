package verification

import "errors"

// ErrNotConfigured indicates that verification was requested in a guild that has no GuildConfig.
var ErrNotConfigured = errors.New("verification is not configured for this guild")

// ErrWrongChannel indicates that verification was requested outside the configured channel.
var ErrWrongChannel = errors.New("verification must be started in the configured channel")

// ErrSessionInProgress indicates that the member already has an unresolved Session in the guild.
var ErrSessionInProgress = errors.New("verification session already in progress")

// ErrWrongAnswer indicates that the member's answer did not match the challenge.
var ErrWrongAnswer = errors.New("captcha answer does not match")

// ErrTimeout indicates that no answer arrived before the deadline.
var ErrTimeout = errors.New("captcha answer was not received in time")

// ErrRoleGrant indicates that the answer matched but the role could not be granted.
var ErrRoleGrant = errors.New("failed to grant verified role")
