package logging

import "log/slog"

// ValueKeys are the attribute keys that carry cell contents.
var ValueKeys = []string{"value", "values", "key"}

// Redacted replaces a masked attribute value.
const Redacted = "[redacted]"

// Redactor masks the values of selected attributes. Input tables may hold
// data that must not reach log storage, while table names, cells and
// counts stay readable.
type Redactor struct {
	keys map[string]bool
}

// NewRedactor returns a redactor masking the given attribute keys.
func NewRedactor(keys ...string) *Redactor {
	r := &Redactor{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		r.keys[k] = true
	}
	return r
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. A nil Redactor
// returns attributes unchanged.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r == nil || !r.keys[a.Key] {
		return a
	}
	return slog.String(a.Key, Redacted)
}
