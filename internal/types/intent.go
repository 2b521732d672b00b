package types

import "strings"

// Intent is the coarse action a teacher's prompt asks for.
type Intent string

const (
	IntentCreateImage Intent = "create_image"
	IntentEditImage   Intent = "edit_image"
	IntentUnknown     Intent = "unknown"
)

// Intents lists every valid intent in a stable order.
func Intents() []Intent {
	return []Intent{IntentCreateImage, IntentEditImage, IntentUnknown}
}

func (i Intent) Valid() bool {
	switch i {
	case IntentCreateImage, IntentEditImage, IntentUnknown:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	return string(i)
}

// ParseIntent accepts the exact wire value of an intent. Surrounding whitespace
// is ignored, case is not.
func ParseIntent(s string) (Intent, bool) {
	in := Intent(strings.TrimSpace(s))
	if !in.Valid() {
		return "", false
	}
	return in, true
}
