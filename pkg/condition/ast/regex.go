package ast

import (
	"fmt"
	"regexp"
	"strings"
)

// Compile converts the literal into a Go regular expression.
// The flags i, m and s map to the matching inline flags; g is accepted
// and only affects substitution. Any other flag is rejected.
func (r *Regex) Compile() (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range r.Flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(inline.String(), f) {
				inline.WriteRune(f)
			}
		case 'g':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q in %s", f, String(r))
		}
	}

	pattern := unescapeSlashes(r.Pattern)
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %s: %w", String(r), err)
	}
	return re, nil
}

// Global reports whether the g flag is set.
func (r *Regex) Global() bool {
	return strings.ContainsRune(r.Flags, 'g')
}

// Substitute applies the substitution to value using a pattern previously
// returned by Compile. Without the g flag only the first match is replaced.
// Group references may be written $1 or ${1}.
func (r *Regex) Substitute(re *regexp.Regexp, value string) string {
	template := expandTemplate(unescapeSlashes(r.Replace))
	if r.Global() {
		return re.ReplaceAllString(value, template)
	}
	loc := re.FindStringSubmatchIndex(value)
	if loc == nil {
		return value
	}
	var dst []byte
	dst = re.ExpandString(dst, template, value, loc)
	return value[:loc[0]] + string(dst) + value[loc[1]:]
}

// unescapeSlashes turns \/ into / so the pattern can be handed to regexp.
func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}

// expandTemplate rewrites $N group references as ${N} so that a digit
// group is never read as part of a longer name.
func expandTemplate(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		if s[i+1] == '$' {
			sb.WriteString("$$")
			i++
			continue
		}
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i+1 {
			sb.WriteByte('$')
			continue
		}
		sb.WriteString("${")
		sb.WriteString(s[i+1 : j])
		sb.WriteByte('}')
		i = j - 1
	}
	return sb.String()
}
