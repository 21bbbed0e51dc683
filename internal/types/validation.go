package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var eventValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateEvent checks the required fields of a decoded event and the
// timestamps the handlers depend on. Failures are DecodeErrors.
func ValidateEvent(e Event) error {
	switch ev := e.(type) {
	case UnrecognizedEvent, DayHasPassed:
		return nil
	case MaintenanceJobPlanned:
		if ev.StartTime.IsZero() {
			return NewAppError(ErrCodeDecodeMissingField,
				fmt.Sprintf("%s: startTime is required", ev.MessageType()), nil)
		}
	}

	if err := eventValidator.Struct(e); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Namespace())
			}
			return NewAppErrorWithDetails(ErrCodeDecodeMissingField,
				fmt.Sprintf("%s: missing %s", e.MessageType(), strings.Join(fields, ", ")),
				err,
				map[string]any{"fields": fields},
			)
		}
		return NewAppError(ErrCodeDecodeMalformedPayload,
			fmt.Sprintf("%s: validation failed", e.MessageType()), err)
	}
	return nil
}
