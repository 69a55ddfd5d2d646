// Package budget holds the fixed-window token budget model: resource kinds,
// per-kind limits, minute buckets and the decision returned to callers.
package budget

import (
	"fmt"

	"github.com/magnus-flipper/magnus/internal/domain"
)

// Kind is a budgeted resource category.
type Kind string

// Supported kinds.
const (
	KindAlerts Kind = "alerts"
	KindLLM    Kind = "llm"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindAlerts, KindLLM}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAlerts, KindLLM:
		return true
	default:
		return false
	}
}

// ParseKind converts a raw string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, s)
	}
	return k, nil
}

func (k Kind) String() string { return string(k) }
