// Package timefmt converts the date/time patterns used by contract DSLs
// (`yyyy-MM-dd'T'HH:mm:ss`) into Go reference layouts.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Default patterns used when a datetime/date/time matcher omits its format.
const (
	DefaultDateTime = "yyyy-MM-dd'T'HH:mm:ss"
	DefaultDate     = "yyyy-MM-dd"
	DefaultTime     = "HH:mm:ss"
)

// Layout converts pattern into a Go time layout.
func Layout(pattern string) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("timefmt: empty pattern")
	}
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		if c == '\'' {
			end, literal, err := quoted(pattern, i)
			if err != nil {
				return "", err
			}
			b.WriteString(literal)
			i = end
			continue
		}
		if !isLetter(c) {
			b.WriteByte(c)
			i++
			continue
		}
		run := 1
		for i+run < len(pattern) && pattern[i+run] == c {
			run++
		}
		layout, err := letter(c, run)
		if err != nil {
			return "", fmt.Errorf("timefmt: pattern %q: %w", pattern, err)
		}
		b.WriteString(layout)
		i += run
	}
	return b.String(), nil
}

// Format renders t with pattern.
func Format(t time.Time, pattern string) (string, error) {
	layout, err := Layout(pattern)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// Parse reads value using pattern.
func Parse(pattern, value string) (time.Time, error) {
	layout, err := Layout(pattern)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timefmt: %q does not match %q: %w", value, pattern, err)
	}
	return t, nil
}

func quoted(pattern string, start int) (int, string, error) {
	i := start + 1
	if i < len(pattern) && pattern[i] == '\'' {
		return i + 1, "'", nil
	}
	var b strings.Builder
	for i < len(pattern) {
		if pattern[i] == '\'' {
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return i + 1, b.String(), nil
		}
		b.WriteByte(pattern[i])
		i++
	}
	return 0, "", fmt.Errorf("timefmt: unterminated literal in %q", pattern)
}

func letter(c byte, run int) (string, error) {
	switch c {
	case 'y', 'u':
		if run == 2 {
			return "06", nil
		}
		return "2006", nil
	case 'M', 'L':
		switch {
		case run >= 4:
			return "January", nil
		case run == 3:
			return "Jan", nil
		case run == 2:
			return "01", nil
		default:
			return "1", nil
		}
	case 'd':
		if run >= 2 {
			return "02", nil
		}
		return "2", nil
	case 'D':
		return "002", nil
	case 'E':
		if run >= 4 {
			return "Monday", nil
		}
		return "Mon", nil
	case 'H', 'k':
		return "15", nil
	case 'h', 'K':
		if run >= 2 {
			return "03", nil
		}
		return "3", nil
	case 'm':
		if run >= 2 {
			return "04", nil
		}
		return "4", nil
	case 's':
		if run >= 2 {
			return "05", nil
		}
		return "5", nil
	case 'S':
		return strings.Repeat("0", run), nil
	case 'a':
		return "PM", nil
	case 'X':
		switch run {
		case 1:
			return "Z07", nil
		case 2:
			return "Z0700", nil
		default:
			return "Z07:00", nil
		}
	case 'x':
		switch run {
		case 1:
			return "-07", nil
		case 2:
			return "-0700", nil
		default:
			return "-07:00", nil
		}
	case 'Z':
		if run >= 5 {
			return "Z07:00", nil
		}
		return "-0700", nil
	case 'z':
		return "MST", nil
	}
	return "", fmt.Errorf("unsupported pattern letter %q", strings.Repeat(string(c), run))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
