package fieldrules

import "errors"

// Caller errors.
var (
	// ErrInvalidContext: the posting context has neither document type nor account.
	ErrInvalidContext = errors.New("posting context needs a document type or an account")
)

// Configuration errors. Store implementations return these (wrapped) for data
// problems; any other store error is treated as a transport failure.
var (
	ErrNoRuleSet         = errors.New("no rule set resolvable")
	ErrRuleSetInactive   = errors.New("rule set is inactive")
	ErrRuleSetNotFound   = errors.New("rule set not found")
	ErrIncompleteRuleSet = errors.New("rule set is missing field entries")
	ErrInvalidStatus     = errors.New("invalid field status")
	ErrUnknownField      = errors.New("unknown field")
	ErrDuplicateField    = errors.New("duplicate field entry")
)

// IsConfigurationError reports whether err stems from the rule configuration
// rather than from the store transport.
func IsConfigurationError(err error) bool {
	for _, target := range []error{
		ErrNoRuleSet,
		ErrRuleSetInactive,
		ErrRuleSetNotFound,
		ErrIncompleteRuleSet,
		ErrInvalidStatus,
		ErrUnknownField,
		ErrDuplicateField,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsResolutionGap reports whether err means "no usable rule set for this
// context". Callers apply their fail-open / fail-closed policy to these.
func IsResolutionGap(err error) bool {
	return errors.Is(err, ErrNoRuleSet) || errors.Is(err, ErrRuleSetInactive)
}
