package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// expandEnvExpr substitutes every ${env.KEY} in an experiment document with
// the value of the environment variable KEY, or "" when unset. Malformed
// expressions pass through untouched.
func expandEnvExpr(value string) string {
	var b strings.Builder
	rest := value
	for {
		idx := strings.Index(rest, envPrefix)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		after := rest[idx+len(envPrefix):]

		end := strings.IndexByte(after, '}')
		if end < 0 {
			// Unterminated expression, keep the remainder literal.
			b.WriteString(rest[idx:])
			break
		}
		key := after[:end]
		if !validEnvKey(key) {
			// Emit the prefix literally and rescan the rest, nested
			// expressions inside the bad one still get expanded.
			b.WriteString(envPrefix)
			rest = after
			continue
		}
		b.WriteString(os.Getenv(key))
		rest = after[end+1:]
	}
	return b.String()
}

func validEnvKey(key string) bool {
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
