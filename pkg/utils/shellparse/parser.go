// Package shellparse splits layout "run" command lines into argument vectors.
//
// The grammar is deliberately small: words are separated by whitespace and a
// pair of double quotes groups its content, whitespace included, into one
// word. There are no escapes and single quotes are ordinary characters, so
// a command line reads the same way in a YAML layout as it does here.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnclosedQuote is returned when a double quote is not closed.
var ErrUnclosedQuote = errors.New("unclosed quote in command string")

// Split parses a command string into arguments.
//
// Examples:
//
//	Split(``) => []
//	Split(`echo hello world`) => ["echo", "hello", "world"]
//	Split(`echo "hello world"`) => ["echo", "hello world"]
//	Split(`echo ""`) => ["echo", ""]
//	Split(`--name="a b"`) => ["--name=a b"]
func Split(input string) ([]string, error) {
	result := []string{}
	var current strings.Builder
	var inQuote bool
	var sawQuotes bool // an empty "" still yields a word

	for _, ch := range input {
		switch {
		case ch == '"':
			inQuote = !inQuote
			sawQuotes = true
		case unicode.IsSpace(ch) && !inQuote:
			if current.Len() > 0 || sawQuotes {
				result = append(result, current.String())
				current.Reset()
				sawQuotes = false
			}
		default:
			current.WriteRune(ch)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("%w: %s", ErrUnclosedQuote, input)
	}

	if current.Len() > 0 || sawQuotes {
		result = append(result, current.String())
	}

	return result, nil
}

// Join renders arguments as a command line Split parses back, as long as no
// argument contains a double quote. Used for log output.
func Join(args []string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(arg string) string {
	if arg == "" {
		return `""`
	}
	if strings.IndexFunc(arg, unicode.IsSpace) < 0 {
		return arg
	}
	return `"` + arg + `"`
}
