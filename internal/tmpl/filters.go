package tmpl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defDateLayout = "YYYY-MM-DD"

var reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ApplyFilter applies one filter to a value.  Unrecognized filter names
// pass the value through unchanged.
func ApplyFilter(v any, f Filter) any {
	switch f.Name {
	case "date":
		t, ok := toTime(v)
		if !ok {
			return v
		}
		layout := defDateLayout
		if f.HasArg {
			layout = f.Arg
		}
		return formatDate(t, layout)
	case "lowercase":
		return strings.ToLower(stringify(v))
	case "uppercase":
		return strings.ToUpper(stringify(v))
	case "trim":
		return strings.TrimSpace(stringify(v))
	case "default":
		if v == nil || v == "" {
			return f.Arg
		}
		return v
	case "join":
		sep := ", "
		if f.HasArg {
			sep = f.Arg
		}
		switch a := v.(type) {
		case []string:
			return strings.Join(a, sep)
		case []any:
			parts := make([]string, len(a))
			for i, el := range a {
				parts[i] = stringify(el)
			}
			return strings.Join(parts, sep)
		}
		return v
	case "slug":
		s := strings.ToLower(stringify(v))
		s = reNonAlnum.ReplaceAllString(s, "-")
		return strings.Trim(s, "-")
	case "truncate":
		s := stringify(v)
		limit := 100
		if f.HasArg {
			if n, err := strconv.Atoi(f.Arg); err == nil {
				limit = n
			}
		}
		runes := []rune(s)
		if len(runes) <= limit {
			return s
		}
		return string(runes[:limit]) + "…"
	}
	return v
}

// toTime coerces a value into a time: a time.Time as-is, a string in
// RFC 3339 or plain date form, or a number of epoch milliseconds.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case int:
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	case float64:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

// dateTokens lists the substitution tokens longest-first so that MMM is
// never consumed by MM.
var dateTokens = []string{"YYYY", "MMM", "MM", "DD", "HH", "mm", "ss", "ddd", "Z"}

// formatDate substitutes layout tokens with the UTC components of t.
func formatDate(t time.Time, layout string) string {
	t = t.UTC()
	repl := map[string]string{
		"YYYY": strconv.Itoa(t.Year()),
		"MMM":  t.Format("Jan"),
		"MM":   fmt.Sprintf("%02d", int(t.Month())),
		"DD":   fmt.Sprintf("%02d", t.Day()),
		"HH":   fmt.Sprintf("%02d", t.Hour()),
		"mm":   fmt.Sprintf("%02d", t.Minute()),
		"ss":   fmt.Sprintf("%02d", t.Second()),
		"ddd":  t.Format("Mon"),
		"Z":    "+00:00",
	}
	out := layout
	for _, tok := range dateTokens {
		out = strings.ReplaceAll(out, tok, repl[tok])
	}
	return out
}
