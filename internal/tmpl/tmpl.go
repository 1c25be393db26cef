// Package tmpl implements the `{{variable|filter:arg}}` expression
// language used by frontmatter templates.  Values are dynamically typed:
// a template value that is exactly one expression keeps the native type of
// the resolved value, anything else renders to a string.
package tmpl

import (
	"fmt"
	"regexp"
	"strings"
)

// Context holds the variables an expression can reference.
type Context map[string]any

// Filter is one step of an expression's filter chain.
type Filter struct {
	Name   string
	Arg    string
	HasArg bool
}

// Expression is a parsed `variable|filter:arg|...` chain.
type Expression struct {
	Variable string
	Filters  []Filter
}

var reExpr = regexp.MustCompile(`\{\{(.+?)\}\}`)
var reExprOnly = regexp.MustCompile(`^\{\{(.+?)\}\}$`)

// ParseExpression splits an expression on top-level pipes into the
// variable name and its filter chain.  Pipes and colons inside quoted
// filter arguments do not split; matching surrounding quotes are stripped
// from the argument.
func ParseExpression(s string) Expression {
	segs := splitPipes(strings.TrimSpace(s))
	expr := Expression{Variable: strings.TrimSpace(segs[0])}
	for _, seg := range segs[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		colon := findUnquotedColon(seg)
		if colon == -1 {
			expr.Filters = append(expr.Filters, Filter{Name: seg})
			continue
		}
		name := strings.TrimSpace(seg[:colon])
		arg := strings.TrimSpace(seg[colon+1:])
		arg = stripQuotes(arg)
		expr.Filters = append(expr.Filters, Filter{Name: name, Arg: arg, HasArg: true})
	}
	return expr
}

// splitPipes splits on `|` outside of quoted runs.
func splitPipes(s string) []string {
	var segs []string
	var buf strings.Builder
	var quote rune
	for _, c := range s {
		switch {
		case quote != 0:
			buf.WriteRune(c)
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			buf.WriteRune(c)
			quote = c
		case c == '|':
			segs = append(segs, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(c)
		}
	}
	return append(segs, buf.String())
}

// findUnquotedColon returns the index of the first `:` outside quoted
// runs, or -1.
func findUnquotedColon(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ':':
			return i
		}
	}
	return -1
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Resolve evaluates a single expression body (without the braces) against
// the context.
func Resolve(expr string, ctx Context) any {
	parsed := ParseExpression(expr)
	v := ctx[parsed.Variable]
	for _, f := range parsed.Filters {
		v = ApplyFilter(v, f)
	}
	return v
}

// ResolveValue resolves a template value string.  A string that is exactly
// one expression returns the resolved value with its native type
// preserved; any other string interpolates each expression as text, with
// nil rendering empty.
func ResolveValue(raw string, ctx Context) any {
	if m := reExprOnly.FindStringSubmatch(raw); m != nil {
		return Resolve(m[1], ctx)
	}
	return reExpr.ReplaceAllStringFunc(raw, func(m string) string {
		body := reExpr.FindStringSubmatch(m)[1]
		return stringify(Resolve(body, ctx))
	})
}

// Field is one frontmatter field of a template.  Order matters in the
// serialized output, so templates carry fields as a slice, not a map.
type Field struct {
	Key   string
	Value any
}

// ResolveTemplate resolves every field of a template against the context.
// String fields are dropped when they resolve to nil or an empty string.
// Array fields have each string element resolved, keep only non-empty
// results, and are dropped entirely when nothing remains.  Other non-nil
// values pass through as-is.
func ResolveTemplate(fields []Field, ctx Context) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			res := ResolveValue(v, ctx)
			if res == nil || res == "" {
				continue
			}
			out = append(out, Field{Key: f.Key, Value: res})
		case []string:
			var kept []any
			for _, el := range v {
				res := ResolveValue(el, ctx)
				if res == nil || res == "" {
					continue
				}
				kept = append(kept, res)
			}
			if len(kept) == 0 {
				continue
			}
			out = append(out, Field{Key: f.Key, Value: kept})
		case []any:
			var kept []any
			for _, el := range v {
				switch s := el.(type) {
				case string:
					res := ResolveValue(s, ctx)
					if res == nil || res == "" {
						continue
					}
					kept = append(kept, res)
				default:
					if el != nil {
						kept = append(kept, el)
					}
				}
			}
			if len(kept) == 0 {
				continue
			}
			out = append(out, Field{Key: f.Key, Value: kept})
		default:
			if f.Value != nil {
				out = append(out, f)
			}
		}
	}
	return out
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
