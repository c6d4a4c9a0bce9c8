package schedule

import (
	"time"

	cronv3 "github.com/robfig/cron/v3"
)

// NextRunPreview estimates when a spec would fire next, for display while
// the user is still composing the schedule. The authoritative value is the
// server's next_run_time; this is only a local hint.
//
// For cron mode an unparseable expression yields ok=false and nothing else:
// cron syntax judgment belongs to the scheduler service, so a failed parse
// here must never block creation.
func NextRunPreview(spec Spec, now time.Time) (next time.Time, ok bool) {
	switch spec.Mode {
	case ModeOnce:
		if spec.RunAt.IsZero() || !spec.RunAt.After(now) {
			return time.Time{}, false
		}
		return spec.RunAt, true
	case ModeInterval:
		d := time.Duration(spec.Hours)*time.Hour +
			time.Duration(spec.Minutes)*time.Minute +
			time.Duration(spec.Seconds)*time.Second
		if d <= 0 {
			return time.Time{}, false
		}
		return now.Add(d), true
	case ModeCron:
		parsed, err := cronv3.ParseStandard(spec.Cron)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.Next(now), true
	}
	return time.Time{}, false
}
