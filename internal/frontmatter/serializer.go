package frontmatter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/s2md/slack2md/internal/tmpl"
)

var (
	reSpecial  = regexp.MustCompile("[:#\\[\\]{}&*!|>'\"%@`,?]")
	reEdgeWS   = regexp.MustCompile(`^\s|\s$`)
	reKeyword  = regexp.MustCompile(`(?i)^(true|false|null|yes|no|on|off)$`)
	reNumeric  = regexp.MustCompile(`^-?\d`)
)

// Serialize renders resolved fields as a YAML frontmatter block with `---`
// delimiters.  Nil and empty-string values are omitted, arrays render as
// block sequences and are omitted when empty.
func Serialize(fields []tmpl.Field) string {
	lines := []string{"---"}
	for _, f := range fields {
		if f.Value == nil || f.Value == "" {
			continue
		}
		switch v := f.Value.(type) {
		case []any:
			if len(v) == 0 {
				continue
			}
			lines = append(lines, f.Key+":")
			for _, el := range v {
				lines = append(lines, "  - "+escape(el))
			}
		case []string:
			if len(v) == 0 {
				continue
			}
			lines = append(lines, f.Key+":")
			for _, el := range v {
				lines = append(lines, "  - "+escape(el))
			}
		default:
			lines = append(lines, f.Key+": "+escape(f.Value))
		}
	}
	lines = append(lines, "---")
	return strings.Join(lines, "\n")
}

// escape quotes a scalar when YAML would otherwise mangle or retype it.
func escape(v any) string {
	if v == nil {
		return ""
	}
	switch v.(type) {
	case bool, int, int64, float64:
		return fmt.Sprint(v)
	}
	s := fmt.Sprint(v)
	if s == "" {
		return `""`
	}
	if reSpecial.MatchString(s) || reEdgeWS.MatchString(s) || reKeyword.MatchString(s) || reNumeric.MatchString(s) {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		return `"` + s + `"`
	}
	return s
}
