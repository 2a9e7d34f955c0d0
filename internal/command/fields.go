package command

import (
	"math"
	"strings"
)

// Field returns the index-th field of data split on sep. It returns the
// empty string when data has fewer than index+1 fields.
func Field(data string, sep byte, index int) string {
	if index < 0 {
		return ""
	}
	for i := 0; i < index; i++ {
		j := strings.IndexByte(data, sep)
		if j < 0 {
			return ""
		}
		data = data[j+1:]
	}
	if j := strings.IndexByte(data, sep); j >= 0 {
		return data[:j]
	}
	return data
}

// Atoi parses the leading integer of s the way C atoi does: leading
// whitespace is skipped, an optional sign is accepted, and parsing stops at
// the first non-digit. Input without leading digits yields 0. Values beyond
// the 32-bit range saturate.
func Atoi(s string) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	var n int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
		if n > math.MaxInt32+1 {
			n = math.MaxInt32 + 1
		}
	}

	if neg {
		n = -n
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	return int(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
