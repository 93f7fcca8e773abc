package command

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// roomNamespace seeds derived room ids.
var roomNamespace = uuid.MustParse("5b0e3a57-5a3c-4d8e-9a43-2f7a3c1f0d64")

// SanitizeRoomID normalizes a human entered room id to its store key:
// lower case, surrounding space trimmed, inner whitespace runs folded to a
// single "-", and anything outside [a-z0-9-_.] dropped.
func SanitizeRoomID(id string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(id)) {
		if unicode.IsSpace(r) {
			pendingDash = true
			continue
		}
		if !allowedRoomRune(r) {
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func allowedRoomRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

// DeriveRoomID returns the id for a room created by a command that named no
// room. The same command id always yields the same room id.
func DeriveRoomID(cmd Command) string {
	return uuid.NewSHA1(roomNamespace, []byte(cmd.ID)).String()
}
