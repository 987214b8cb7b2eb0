package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/idna"
)

// LoadDomains reads a domain list file. An unreadable file is an error;
// malformed lines are normalized or kept as-is, never dropped.
func LoadDomains(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain list: %w", err)
	}
	defer f.Close()
	return ReadDomains(f)
}

// ReadDomains returns one entry per non-blank, non-comment line, in input
// order. Duplicates are kept.
func ReadDomains(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if d := Normalize(line); d != "" {
			out = append(out, d)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read domain list: %w", err)
	}
	return out, nil
}

// Normalize strips a pasted scheme and path and lower-cases the host,
// converting internationalized names to their ASCII form.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	if s == "" {
		return ""
	}
	if a, err := idna.ToASCII(s); err == nil && a != "" {
		return a
	}
	return s
}
