package api

import (
	"strconv"
	"strings"
)

// ProgressStatus is the lifecycle state of a progress entry.
type ProgressStatus int

const (
	StatusNormal    ProgressStatus = 0
	StatusCompleted ProgressStatus = 1
	StatusDisabled  ProgressStatus = 2
)

// String returns the display text for a progress status.
func (s ProgressStatus) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusCompleted:
		return "completed"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Icon returns a single-glyph marker for table and TUI rendering.
func (s ProgressStatus) Icon() string {
	switch s {
	case StatusNormal:
		return "🕐"
	case StatusCompleted:
		return "✅"
	case StatusDisabled:
		return "⏸"
	default:
		return "❓"
	}
}

// Valid reports whether the status is one of the known values.
func (s ProgressStatus) Valid() bool {
	return s >= StatusNormal && s <= StatusDisabled
}

// ParseProgressStatus converts a user-supplied name or number to a status.
func ParseProgressStatus(v string) (ProgressStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "normal":
		return StatusNormal, true
	case "1", "completed", "done":
		return StatusCompleted, true
	case "2", "disabled":
		return StatusDisabled, true
	}
	return 0, false
}

// RunMode is the repetition mode of a scheduled notification.
type RunMode int

const (
	RunOnce   RunMode = 0
	RunDaily  RunMode = 1
	RunWeekly RunMode = 2
)

// String returns the display text for a run mode.
func (m RunMode) String() string {
	switch m {
	case RunOnce:
		return "once"
	case RunDaily:
		return "daily"
	case RunWeekly:
		return "weekly"
	default:
		return "unknown"
	}
}

var weekdayNames = map[int]string{
	1: "Mon",
	2: "Tue",
	3: "Wed",
	4: "Thu",
	5: "Fri",
	6: "Sat",
	7: "Sun",
}

// WeekdayText renders a weekly notify's weekday digit list (e.g. 135)
// as human-readable day names ("Mon,Wed,Fri"). Unknown digits are skipped.
func WeekdayText(weekAt int) string {
	if weekAt <= 0 {
		return ""
	}
	digits := strconv.Itoa(weekAt)
	names := make([]string, 0, len(digits))
	for _, d := range digits {
		if name, ok := weekdayNames[int(d-'0')]; ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}
