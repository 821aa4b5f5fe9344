package schedule

import "github.com/course-remind/internal/domain"

// Notification channel identifiers understood by the client apps. Resolved
// exactly once per delivery from the user's sound preference.
const (
	ChannelDefault = "course-reminders"
	ChannelChime   = "course-reminders-chime"
	ChannelSilent  = "course-reminders-silent"
)

// ChannelFor maps a sound preference onto its transport-level channel
// identifier. Unknown preferences fall back to the default channel.
func ChannelFor(sound string) string {
	switch sound {
	case domain.SoundChime:
		return ChannelChime
	case domain.SoundSilent:
		return ChannelSilent
	default:
		return ChannelDefault
	}
}
