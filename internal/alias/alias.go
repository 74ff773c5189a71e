// Package alias extracts the table alias from a raw FROM expression.
//
// The grammar is: an optional leading text, at least one whitespace character,
// then a trailing token that is either a bracketed table marker ({{name}}) or a
// bare word. The trailing token is the alias. Expressions that do not match
// have no separate alias; the caller uses the whole expression instead.
//
// The pattern mirrors how the query engine infers an alias for the same text.
// It does not understand engine quoting: an expression ending in a quoted
// identifier such as `"order items"` does not match and is used whole.
package alias

import (
	"regexp"
	"strings"
)

var (
	trailingAlias = regexp.MustCompile(`^(.*?)\s+({{\w+}}|\w+)$`)
	tableMarker   = regexp.MustCompile(`{{(\w+)}}`)
)

// Parse returns the trailing alias token of expr. ok is false when expr has no
// whitespace-separated trailing token.
func Parse(expr string) (alias string, ok bool) {
	m := trailingAlias.FindStringSubmatch(expr)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// Resolve returns the alias of expr, or expr itself when it has none.
func Resolve(expr string) string {
	if a, ok := Parse(expr); ok {
		return a
	}
	return expr
}

// Unwrap strips a {{name}} table marker. Other tokens are returned unchanged.
func Unwrap(token string) string {
	if strings.HasPrefix(token, "{{") && strings.HasSuffix(token, "}}") && len(token) > 4 {
		return token[2 : len(token)-2]
	}
	return token
}

// Expand replaces every {{name}} marker in expr with quote(name).
func Expand(expr string, quote func(string) string) string {
	if !strings.Contains(expr, "{{") {
		return expr
	}
	return tableMarker.ReplaceAllStringFunc(expr, func(marker string) string {
		return quote(marker[2 : len(marker)-2])
	})
}
