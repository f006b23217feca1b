package verification

import (
	"errors"
	"fmt"
	"time"
)

const (
	notConfiguredMessage = "⚠️ Verification not set up yet."
	wrongChannelMessage  = "❌ Use this in the verification channel."
	inProgressMessage    = "⏳ You already have a captcha pending. Answer it first."
	unavailableMessage   = "⚠️ Could not start verification. Please try again later."
	wrongAnswerMessage   = "❌ Wrong captcha. Try again with `/verify`."
	timeoutMessage       = "⌛ Time expired. Try again with `/verify`."
	roleGrantMessage     = "⚠️ You answered correctly but I could not give you the role. Please contact a moderator."
)

// UserMessage returns the text shown to a member whose verification could not be started with err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return notConfiguredMessage
	case errors.Is(err, ErrWrongChannel):
		return wrongChannelMessage
	case errors.Is(err, ErrSessionInProgress):
		return inProgressMessage
	default:
		return unavailableMessage
	}
}

func promptMessage(timeout time.Duration) string {
	return fmt.Sprintf("🔒 Type the text in this captcha within **%d seconds**:", int(timeout.Seconds()))
}

func successMessage(roleID string) string {
	return fmt.Sprintf("✅ Verified! You now have <@&%s>.", roleID)
}
