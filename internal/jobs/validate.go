package jobs

import "strings"

// ValidatePayload checks the fields a notifier cannot do without.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch t {
	case JobUserCreated:
		var p UserCreatedPayload
		switch v := payload.(type) {
		case UserCreatedPayload:
			p = v
		case *UserCreatedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if p.UserID <= 0 || blank(p.Email) {
			return ErrInvalidJobPayload
		}
		return nil

	case JobUserDeleted:
		var p UserDeletedPayload
		switch v := payload.(type) {
		case UserDeletedPayload:
			p = v
		case *UserDeletedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if p.UserID <= 0 || blank(p.Email) {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
