// Copyright (c) 2026 The Alba Authors
// Author: Watson (https://github.com/Watson1978)
//
// keytransform.go — named key-casing strategies applied to output keys at
// serialization time. Every strategy is idempotent: transforming an already
// transformed key is a no-op.

package alba

import "strings"

// KeyFormat names a key-casing strategy applied to every output key of a
// schema at serialization time.
type KeyFormat int

const (
	// KeyNone leaves keys exactly as declared.
	KeyNone KeyFormat = iota
	// KeyCamel produces UpperCamelCase keys ("user_name" -> "UserName").
	KeyCamel
	// KeyLowerCamel produces lowerCamelCase keys ("user_name" -> "userName").
	KeyLowerCamel
	// KeySnake produces snake_case keys ("userName" -> "user_name").
	KeySnake
	// KeyDash produces dash-case keys ("userName" -> "user-name").
	KeyDash
)

// TransformKey applies the given strategy to a single key. An unknown
// strategy is treated as KeyNone. The function is pure and idempotent for
// every supported strategy.
func TransformKey(key string, f KeyFormat) string {
	if key == "" {
		return key
	}
	words := splitWords(key)
	switch f {
	case KeyCamel:
		return joinCamel(words, false)
	case KeyLowerCamel:
		return joinCamel(words, true)
	case KeySnake:
		return joinLower(words, "_")
	case KeyDash:
		return joinLower(words, "-")
	default:
		return key
	}
}

// splitWords breaks a key into word parts on underscores, dashes, and camel
// humps. Runs of upper-case letters stay together ("userID" -> "user", "ID")
// so acronyms survive repeated transformation.
func splitWords(key string) []string {
	var words []string
	var cur []rune
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			if len(cur) > 0 {
				words = append(words, string(cur))
				cur = cur[:0]
			}
		case isUpper(r):
			prevLower := i > 0 && isLower(runes[i-1])
			prevUpper := i > 0 && isUpper(runes[i-1])
			nextLower := i+1 < len(runes) && isLower(runes[i+1])
			if len(cur) > 0 && (prevLower || (prevUpper && nextLower)) {
				words = append(words, string(cur))
				cur = cur[:0]
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}
	return words
}

// joinLower lower-cases every word and joins with sep (snake / dash).
func joinLower(words []string, sep string) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strings.ToLower(w))
	}
	return b.String()
}

// joinCamel upper-cases the first rune of each word, leaving the remainder
// untouched so all-caps words like "ID" keep their shape. With lowerFirst
// set, the first word is lower-cased wholesale instead.
func joinCamel(words []string, lowerFirst bool) string {
	var b strings.Builder
	for i, w := range words {
		if i == 0 && lowerFirst {
			b.WriteString(strings.ToLower(w))
			continue
		}
		r := []rune(w)
		r[0] = toUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func toUpper(r rune) rune {
	if isLower(r) {
		return r - ('a' - 'A')
	}
	return r
}
