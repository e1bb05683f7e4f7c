package utils

import "unicode"

// SplitText cuts text into chunks of at most chunkSize runes, each starting
// overlap runes before the previous one ended. A cut moves back to the last
// whitespace in the final fifth of the window so words stay whole when possible.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if chunkSize <= 0 || len(runes) <= chunkSize {
		return []string{text}
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	total := len(runes)
	for start := 0; start < total; {
		end := start + chunkSize
		if end >= total {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		floor := end - chunkSize/5
		for cut := end; cut > floor; cut-- {
			if unicode.IsSpace(runes[cut-1]) {
				end = cut
				break
			}
		}
		chunks = append(chunks, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
