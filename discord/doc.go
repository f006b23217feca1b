// Package discord provides a sarah.Adapter implementation for Discord.
//
// This package bridges go-sarah's bot framework with Discord using discordgo
// for the underlying API integration. It converts Discord message events and
// application command interactions into sarah.Input, and dispatches sarah.Output
// as channel messages or as private interaction responses.
//
// Besides the sarah.Adapter contract, Adapter grants guild roles and feeds a
// Collector that lets callers wait for a single message matching a Filter.
package discord
