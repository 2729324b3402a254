/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

// Kind groups errors into the classes an outer layer maps to responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindTransient
	KindBreakerOpen
	KindConfiguration
	KindSerialization
	KindValidation
	KindConditionFailed
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindTransient:
		return "Transient"
	case KindBreakerOpen:
		return "BreakerOpen"
	case KindConfiguration:
		return "Configuration"
	case KindSerialization:
		return "Serialization"
	case KindValidation:
		return "Validation"
	case KindConditionFailed:
		return "ConditionFailed"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case IsCircuitOpen(err):
		return KindBreakerOpen
	case IsRetryExhausted(err):
		return KindTransient
	case IsConfiguration(err):
		return KindConfiguration
	case IsNotFound(err):
		return KindNotFound
	case IsAlreadyExists(err):
		return KindConflict
	case IsSerialization(err):
		return KindSerialization
	case IsValidationError(err):
		return KindValidation
	case IsConditionFailed(err):
		return KindConditionFailed
	case IsCopyTimeout(err):
		return KindTimeout
	default:
		return KindUnknown
	}
}
