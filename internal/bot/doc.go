// Package bot wires the verification workflow into go-sarah commands served by the Discord adapter.
package bot
