package shellparse

import (
	"errors"
	"testing"
)

func TestSplit_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "only whitespace",
			input:    "   \t ",
			expected: []string{},
		},
		{
			name:     "single word",
			input:    "true",
			expected: []string{"true"},
		},
		{
			name:     "two words",
			input:    "echo hello",
			expected: []string{"echo", "hello"},
		},
		{
			name:     "three words",
			input:    "echo hello world",
			expected: []string{"echo", "hello", "world"},
		},
		{
			name:     "leading and trailing spaces",
			input:    "  dpkg-buildpackage -us  ",
			expected: []string{"dpkg-buildpackage", "-us"},
		},
		{
			name:     "tabs and spaces",
			input:    "cmd\targ1\t  arg2",
			expected: []string{"cmd", "arg1", "arg2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Split(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatalf("Split(%q) returned nil slice", tt.input)
			}
			if !slicesEqual(result, tt.expected) {
				t.Errorf("Split(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSplit_DoubleQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "quoted words",
			input:    `echo "hello world"`,
			expected: []string{"echo", "hello world"},
		},
		{
			name:     "quoted at start",
			input:    `"/opt/my tool/bin" --flag`,
			expected: []string{"/opt/my tool/bin", "--flag"},
		},
		{
			name:     "empty quotes",
			input:    `echo ""`,
			expected: []string{"echo", ""},
		},
		{
			name:     "quotes adjacent to word",
			input:    `--define="_topdir /tmp/rpm"`,
			expected: []string{"--define=_topdir /tmp/rpm"},
		},
		{
			name:     "single quotes are literal",
			input:    `echo 'a b'`,
			expected: []string{"echo", "'a", "b'"},
		},
		{
			name:     "backslash is literal",
			input:    `echo "a\b"`,
			expected: []string{"echo", `a\b`},
		},
		{
			name:     "rpmbuild invocation",
			input:    `rpmbuild -ba --define "_topdir rpmbuild" SPECS/app.spec`,
			expected: []string{"rpmbuild", "-ba", "--define", "_topdir rpmbuild", "SPECS/app.spec"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Split(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slicesEqual(result, tt.expected) {
				t.Errorf("Split(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed quote", input: `echo "hello world`},
		{name: "lone quote", input: `"`},
		{name: "three quotes", input: `echo "a" "b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.input)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !errors.Is(err, ErrUnclosedQuote) {
				t.Errorf("expected error %v, got %v", ErrUnclosedQuote, err)
			}
		})
	}
}


func TestJoin(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected string
	}{
		{name: "empty slice", input: []string{}, expected: ""},
		{name: "simple args", input: []string{"cmd", "arg1", "arg2"}, expected: "cmd arg1 arg2"},
		{name: "arg with spaces", input: []string{"cmd", "arg with spaces"}, expected: `cmd "arg with spaces"`},
		{name: "empty arg", input: []string{"cmd", ""}, expected: `cmd ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Join(tt.input)
			if result != tt.expected {
				t.Errorf("Join(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "simple args", args: []string{"cmd", "arg1", "arg2"}},
		{name: "args with spaces", args: []string{"cmd", "arg with spaces", "another arg"}},
		{name: "empty arg", args: []string{"printf", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := Join(tt.args)
			split, err := Split(joined)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slicesEqual(split, tt.args) {
				t.Errorf("roundtrip failed: %v -> %q -> %v", tt.args, joined, split)
			}
		})
	}
}

// Helper functions

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
