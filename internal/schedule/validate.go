package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateSpec checks a spec locally, before any network round trip. Cron
// expression syntax is deliberately not checked here: the scheduler service
// owns that judgment, and its rejection surfaces as a create failure.
func ValidateSpec(spec Spec) error {
	switch spec.Mode {
	case ModeOnce:
		if spec.RunAt.IsZero() {
			return errors.New("one-time schedule requires a run time")
		}
	case ModeInterval:
		if spec.Hours < 0 || spec.Minutes < 0 || spec.Seconds < 0 {
			return errors.New("interval values cannot be negative")
		}
		if spec.Hours == 0 && spec.Minutes == 0 && spec.Seconds == 0 {
			return errors.New("interval schedule requires at least one of hours, minutes or seconds to be positive")
		}
	case ModeCron:
		if strings.TrimSpace(spec.Cron) == "" {
			return errors.New("cron schedule requires an expression")
		}
	default:
		return fmt.Errorf("unknown schedule mode %q", spec.Mode)
	}
	return nil
}
