// Package sanitize neutralizes hostile request input: markup and script URIs
// in string values, query-operator keys anywhere in a payload, and wildcard
// characters in user-supplied search terms.
package sanitize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	scriptBlock  = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	eventHandler = regexp.MustCompile(`(?i)\bon\w+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]*)`)
	jsURI        = regexp.MustCompile(`(?i)javascript\s*:`)
	vbsURI       = regexp.MustCompile(`(?i)vbscript\s*:`)
	dataURI      = regexp.MustCompile(`(?i)data\s*:[^,]*,`)
	htmlTag      = regexp.MustCompile(`<[^>]+>`)
)

// StripXSS removes script blocks, inline event handlers, script/data URIs and
// any remaining tags, then trims surrounding whitespace. Output is plain text;
// HTML encoding remains the renderer's job.
func StripXSS(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	s = jsURI.ReplaceAllString(s, "")
	s = vbsURI.ReplaceAllString(s, "")
	s = dataURI.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// HasHTMLTag reports whether s contains anything tag-shaped.
func HasHTMLTag(s string) bool {
	return htmlTag.MatchString(s)
}

// KeyError is returned when a payload carries a reserved operator key.
type KeyError struct {
	Key  string
	Path string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("Invalid input: operator key %q is not allowed in %s", e.Key, e.Path)
}

// IsOperatorKey reports whether key could address a query operator or a
// nested field path.
func IsOperatorKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

// GuardKeys walks a decoded JSON value and fails on the first operator key,
// visiting object keys in sorted order so the reported key is deterministic.
func GuardKeys(v any, path string) error {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if IsOperatorKey(k) {
				return &KeyError{Key: k, Path: path}
			}
			if err := GuardKeys(x[k], path+"."+k); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range x {
			if err := GuardKeys(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// GuardQueryKeys applies the operator-key rule to query parameter names,
// including bracketed segments such as "email[$gt]".
func GuardQueryKeys(keys []string, path string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for _, key := range sorted {
		segments := strings.FieldsFunc(key, func(r rune) bool { return r == '[' || r == ']' })
		for _, seg := range segments {
			if IsOperatorKey(seg) {
				return &KeyError{Key: seg, Path: path}
			}
		}
	}
	return nil
}

// Clean returns v with StripXSS applied to every string leaf.
func Clean(v any) any {
	switch x := v.(type) {
	case string:
		return StripXSS(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Clean(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Clean(item)
		}
		return out
	default:
		return v
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern builds a case-folded "contains" pattern for use with
// `LIKE ? ESCAPE '\'`. Every LIKE metacharacter in term is escaped.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
