// Package taxonomy holds the controlled category vocabulary offered by the form.
package taxonomy

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultCategories is used when no categories file is present.
var DefaultCategories = []string{
	"Salary", "Food", "Shopping", "Transport", "Bills", "Entertainment", "Health", "Other",
}

type Vocabulary struct {
	names []string
	set   map[string]struct{}
}

func New(names []string) *Vocabulary {
	names = dedupe(names)
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &Vocabulary{names: names, set: set}
}

// FromFile reads one category per line; blank lines and lines starting with
// "#" are skipped. A missing or empty file yields DefaultCategories. A file
// that exists but cannot be read also yields DefaultCategories, together
// with the read error.
func FromFile(path string) (*Vocabulary, error) {
	names, err := readLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	if err != nil {
		names = nil
		err = fmt.Errorf("read categories from %s: %w", path, err)
	}
	if len(names) == 0 {
		names = DefaultCategories
	}
	return New(names), err
}

// Names returns the categories in file order.
func (v *Vocabulary) Names() []string {
	return append([]string(nil), v.names...)
}

func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.set[name]
	return ok
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
