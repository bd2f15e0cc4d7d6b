// Package dictionary loads the line-delimited term lists that drive ranking:
// the allow-list of terms eligible for output and the deny-list of terms kept
// out of the index. Terms are taken verbatim apart from trimming; callers
// must write the files in the same case the tokenizer produces.
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// Set is a collection of distinct terms.
type Set map[string]struct{}

// NewSet builds a Set from literal terms.
func NewSet(terms ...string) Set {
	s := make(Set, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether term is in the set.
func (s Set) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Options tweak how lines are read.
type Options struct {
	// FirstColumn keeps only the text before the first comma, for term files
	// exported as "TICKER,Company name".
	FirstColumn bool
}

// Load reads one term per line from r.
func Load(r io.Reader, opts Options) (Set, error) {
	terms := make(Set)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if opts.FirstColumn {
			if i := strings.IndexByte(line, ','); i >= 0 {
				line = line[:i]
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		terms[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading terms: %w", err)
	}
	return terms, nil
}

// LoadFile opens path and loads it with Load. Any failure is a configuration
// error: the pipeline cannot rank without its dictionaries.
func LoadFile(path string, opts Options) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening term file %s: %v", apperrors.ErrConfiguration, path, err)
	}
	defer f.Close()
	terms, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrConfiguration, path, err)
	}
	return terms, nil
}

// Lowered returns a copy of s with every term lower-cased. The deny-list is
// compared case-insensitively, so it is folded once at load time.
func (s Set) Lowered() Set {
	out := make(Set, len(s))
	for t := range s {
		out[strings.ToLower(t)] = struct{}{}
	}
	return out
}
