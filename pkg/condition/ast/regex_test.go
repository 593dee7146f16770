package ast

import "testing"

func TestRegexCompile(t *testing.T) {
	tests := []struct {
		name    string
		regex   Regex
		input   string
		match   bool
		wantErr bool
	}{
		{"plain", Regex{Pattern: "^abc$"}, "abc", true, false},
		{"case insensitive", Regex{Pattern: "^abc$", Flags: "i"}, "ABC", true, false},
		{"case sensitive", Regex{Pattern: "^abc$"}, "ABC", false, false},
		{"escaped slash", Regex{Pattern: `^a\/b$`}, "a/b", true, false},
		{"unanchored", Regex{Pattern: "b"}, "abc", true, false},
		{"unknown flag", Regex{Pattern: "a", Flags: "x"}, "a", false, true},
		{"bad pattern", Regex{Pattern: "("}, "a", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := tt.regex.Compile()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := re.MatchString(tt.input); got != tt.match {
				t.Errorf("MatchString(%q) = %v, want %v", tt.input, got, tt.match)
			}
		})
	}
}

func TestRegexSubstitute(t *testing.T) {
	tests := []struct {
		name  string
		regex Regex
		input string
		want  string
	}{
		{"first only", Regex{Pattern: "a", Replace: "b", Substitution: true}, "aaa", "baa"},
		{"global", Regex{Pattern: "a", Replace: "b", Flags: "g", Substitution: true}, "aaa", "bbb"},
		{"no match", Regex{Pattern: "x", Replace: "y", Substitution: true}, "aaa", "aaa"},
		{"trim", Regex{Pattern: `^\s+|\s+$`, Replace: "", Flags: "g", Substitution: true}, "  hi  ", "hi"},
		{"group reference", Regex{Pattern: `(\w+)-(\w+)`, Replace: "$2-$1", Substitution: true}, "ab-cd", "cd-ab"},
		{"group followed by text", Regex{Pattern: `(a)`, Replace: "$1x", Substitution: true}, "a", "ax"},
		{"slash in replacement", Regex{Pattern: "-", Replace: `\/`, Flags: "g", Substitution: true}, "a-b", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := tt.regex.Compile()
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := tt.regex.Substitute(re, tt.input); got != tt.want {
				t.Errorf("Substitute(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
