package tools

import "unicode/utf8"

const maxOutputBytes = 10_000

func truncate(b []byte) string {
	if len(b) <= maxOutputBytes {
		return string(b)
	}
	n := maxOutputBytes
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "\n... (truncated)"
}
