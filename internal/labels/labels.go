// Package labels loads the class names that index-align with the model output.
package labels

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmpty is returned when a label file holds no names.
var ErrEmpty = errors.New("label list is empty")

// List is an immutable, ordered list of class names.
type List struct {
	names []string
}

// New copies names into a List.
func New(names []string) List {
	return List{names: append([]string(nil), names...)}
}

// Load reads a newline-delimited label file.
func Load(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return List{}, errors.Wrap(err, "open labels")
	}
	defer f.Close()

	l, err := Read(f)
	if err != nil {
		return List{}, errors.Wrapf(err, "read labels %s", path)
	}
	return l, nil
}

// Read parses one label per line. Lines are trimmed and blank lines skipped.
func Read(r io.Reader) (List, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return List{}, err
	}
	if len(names) == 0 {
		return List{}, ErrEmpty
	}
	return List{names: names}, nil
}

// Len returns the number of labels.
func (l List) Len() int { return len(l.names) }

// At returns the label at index i.
func (l List) At(i int) (string, bool) {
	if i < 0 || i >= len(l.names) {
		return "", false
	}
	return l.names[i], true
}

// Names returns a copy of the labels.
func (l List) Names() []string {
	return append([]string(nil), l.names...)
}
