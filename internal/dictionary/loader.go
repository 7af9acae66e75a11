package dictionary

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	ErrOpen  = errors.New("unable to open dictionary file")
	ErrEmpty = errors.New("no plain text words to test")
)

// Load reads one word per line from path, dropping words longer than
// MaxWordLength.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "%q: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read is Load over an arbitrary reader. Only the trailing newline of each
// line is stripped, so a word may legitimately contain spaces or be empty.
func Read(r io.Reader) (*Dictionary, error) {
	var words []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			if len(line) <= MaxWordLength {
				words = append(words, line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read dictionary")
		}
	}
	if len(words) == 0 {
		return nil, ErrEmpty
	}
	return &Dictionary{words: words}, nil
}
