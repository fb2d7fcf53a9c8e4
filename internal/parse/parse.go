// Package parse contains the pure text parsing for RCON responses:
// event payload cleanup, message chunking, and player count extraction.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// playersHeader matches the Zomboid status header, e.g. "Players connected (2):".
var playersHeader = regexp.MustCompile(`(?i)players\s+connected\s*\((\d+)\)`)

// CleanEvents trims surrounding whitespace from a raw event payload.
// A whitespace-only payload collapses to "", meaning nothing to report.
func CleanEvents(raw string) string {
	return strings.TrimSpace(raw)
}

// SplitChunks splits s into ordered chunks of at most max runes each.
// Concatenating the chunks in order reconstructs s exactly. An empty
// input yields no chunks.
func SplitChunks(s string, max int) []string {
	if s == "" || max <= 0 {
		return nil
	}

	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+max-1)/max)
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// PlayerCount extracts the connected player count from a status response.
//
// It first tries the structured "Players connected (N):" header. If the
// header is absent it falls back to counting non-empty lines, skipping
// the first line when it looks like a header (mentions "player"),
// assuming one data line per connected player. Unparsable input yields 0.
func PlayerCount(raw string) int {
	if m := playersHeader.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 0 {
			return n
		}
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) == 0 {
		return 0
	}
	if strings.Contains(strings.ToLower(lines[0]), "player") {
		return len(lines) - 1
	}
	return len(lines)
}
