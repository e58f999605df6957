package domain

import "unicode/utf8"

// MaxCharsPerReply keeps replies under the 2000 character Discord limit.
const MaxCharsPerReply = 1500

// SplitIntoChunks slices text into contiguous pieces of n runes. Only the last piece may be shorter.
// Invalid UTF-8 bytes count as one rune each and are kept as is.
func SplitIntoChunks(text string, n int) []string {
	if n <= 0 {
		n = MaxCharsPerReply
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/n+1)
	start, count := 0, 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		count++

		if count == n {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
	}

	if start < len(text) {
		chunks = append(chunks, text[start:])
	}

	return chunks
}
