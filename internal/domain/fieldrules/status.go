package fieldrules

import (
	"fmt"
	"strings"
)

// FieldStatus is the rule assigned to a field by a rule set.
type FieldStatus uint8

const (
	// statusUnset is the zero value. It never appears in a loaded rule set.
	statusUnset FieldStatus = iota

	Suppressed
	Required
	Optional
	DisplayOnly
)

// AllStatuses returns every valid status.
func AllStatuses() []FieldStatus {
	return []FieldStatus{Suppressed, Required, Optional, DisplayOnly}
}

// Valid reports whether s is one of the four statuses.
func (s FieldStatus) Valid() bool {
	switch s {
	case Suppressed, Required, Optional, DisplayOnly:
		return true
	default:
		return false
	}
}

func (s FieldStatus) String() string {
	switch s {
	case Suppressed:
		return "suppressed"
	case Required:
		return "required"
	case Optional:
		return "optional"
	case DisplayOnly:
		return "display_only"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s FieldStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FieldStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseFieldStatus parses a stored status. Anything other than the four known
// spellings is a configuration error.
func ParseFieldStatus(raw string) (FieldStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "suppressed":
		return Suppressed, nil
	case "required":
		return Required, nil
	case "optional":
		return Optional, nil
	case "display_only", "display-only", "displayonly":
		return DisplayOnly, nil
	default:
		return statusUnset, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}
