package discord

import (
	"strings"

	"github.com/gnupbl/partyvoice/internal/domain"
)

// ParseMentions extracts member ids from a space-separated mention
// string like "<@123> <@!456>". Tokens that do not look like snowflake
// ids are discarded.
func ParseMentions(s string) []domain.ParticipantID {
	var out []domain.ParticipantID
	for _, token := range strings.Fields(s) {
		id := strings.NewReplacer("<@", "", ">", "", "!", "").Replace(token)
		if isSnowflake(id) {
			out = append(out, domain.ParticipantID(id))
		}
	}
	return out
}

// Snowflakes are long decimal numbers; anything shorter than 11 digits
// is noise from a malformed mention.
func isSnowflake(s string) bool {
	if len(s) <= 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
