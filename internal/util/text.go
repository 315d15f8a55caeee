package util

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	input = strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SplitWords splits on single spaces, keeping empty words the way a plain
// split does. Word counts for catalog names and match windows both use it.
func SplitWords(input string) []string {
	return strings.Split(input, " ")
}

func WordCount(input string) int {
	return len(SplitWords(input))
}

// HashKey returns a stable hex key for a sequence of strings.
func HashKey(parts []string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func StringPtr(v string) *string { return &v }

func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
