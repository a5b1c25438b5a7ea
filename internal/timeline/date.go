package timeline

import (
	"fmt"
	"time"

	"github.com/starford/lorekeeper/internal/apperr"
)

// DateLayout is the canonical ISO-8601 calendar date layout.
const DateLayout = "2006-01-02"

// acceptedLayouts are the ISO-8601 shapes an event date may take.
var acceptedLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// DateParseError reports an event date that is not ISO-8601.
type DateParseError struct {
	Date string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("timeline: cannot parse date %q as ISO-8601", e.Date)
}

// Is lets callers match with errors.Is(err, apperr.ErrInvalidDate).
func (e *DateParseError) Is(target error) bool {
	return target == apperr.ErrInvalidDate
}

// ParseDate parses an ISO-8601 date or date-time.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DateParseError{Date: s}
}

// ShardYear returns the calendar year an event date belongs to.
func ShardYear(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Year(), nil
}

// FormatDate renders t as an ISO-8601 calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
