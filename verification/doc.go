// Package verification implements the captcha workflow that gates a guild role.
//
// A Registry maps each guild to the channel members verify in and the role
// they are granted. A Service starts one Session per /verify invocation: it
// generates a Challenge, delivers the rendered image privately, waits for a
// single answer from the same member in the same channel, and grants the role
// when the answer matches.
package verification
