package parser

import (
	"errors"
	"os"
	"strings"
	"unicode"
)

func extractText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.ToValidUTF8(string(b), "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text), nil
}

// minRunLength drops short printable runs, which in binary office files are
// almost always structure bytes rather than prose.
const minRunLength = 4

// extractLegacy pulls printable text runs out of pre-2007 .doc / .xls files.
// Both formats store most text as plain or UTF-16LE runs.
func extractLegacy(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var runs []string
	runs = append(runs, printableRuns(b, 1)...)
	runs = append(runs, printableRuns(b, 2)...)
	if len(b) > 1 {
		runs = append(runs, printableRuns(b[1:], 2)...)
	}
	if len(runs) == 0 {
		return "", errors.New("no readable text found in legacy document")
	}
	return strings.Join(runs, "\n"), nil
}

// printableRuns collects runs of printable ASCII. stride 2 reads UTF-16LE
// text by looking at every other byte with a zero high byte.
func printableRuns(b []byte, stride int) []string {
	var (
		runs    []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); len(s) >= minRunLength && hasLetter(s) {
			runs = append(runs, s)
		}
		current.Reset()
	}
	for i := 0; i+stride-1 < len(b); i += stride {
		c := b[i]
		if stride == 2 && b[i+1] != 0 {
			flush()
			continue
		}
		if c == '\t' || (c >= 0x20 && c < 0x7f) {
			current.WriteByte(c)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
