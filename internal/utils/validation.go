package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used for due dates.
const DateLayout = "2006-01-02"

// relativePattern matches relative date formats like +7d, -3d, +2w, +1m
var relativePattern = regexp.MustCompile(`^([+-])(\d+)([dwm])$`)

// ParseDueDate parses a due date given on the command line relative to now.
// Accepted forms: YYYY-MM-DD, today, tomorrow, yesterday, +Nd, -Nd, +Nw, +Nm.
// An empty string means "no due date" and yields "".
func ParseDueDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	switch strings.ToLower(s) {
	case "today":
		return today.Format(DateLayout), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(DateLayout), nil
	case "yesterday":
		return today.AddDate(0, 0, -1).Format(DateLayout), nil
	}

	if m := relativePattern.FindStringSubmatch(strings.ToLower(s)); m != nil {
		num, err := strconv.Atoi(m[2])
		if err != nil {
			return "", ErrInvalidDate(s)
		}
		if m[1] == "-" {
			num = -num
		}
		switch m[3] {
		case "d":
			return today.AddDate(0, 0, num).Format(DateLayout), nil
		case "w":
			return today.AddDate(0, 0, num*7).Format(DateLayout), nil
		default:
			return today.AddDate(0, num, 0).Format(DateLayout), nil
		}
	}

	parsed, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return "", ErrInvalidDate(s)
	}
	return parsed.Format(DateLayout), nil
}

// SplitTags turns comma-separated input into a tag list, trimming each
// entry and dropping blanks. Repeated tags are kept once, first occurrence wins.
func SplitTags(inputs ...string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, in := range inputs {
		for _, part := range strings.Split(in, ",") {
			tag := strings.TrimSpace(part)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
