package hashcrack

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/ykhdr/crackserver/internal/hashcrack/hasher"
)

type worker struct {
	l      zerolog.Logger
	hasher hasher.Hasher
	words  []string
	salt   string
	target string
}

// scan walks its slice in index order and returns the first word whose hash
// equals the target. It gives up early only when ctx is cancelled.
func (w *worker) scan(ctx context.Context, slice Slice) Result {
	for i := slice.Start; i <= slice.End; i++ {
		if ctx.Err() != nil {
			return NotFound
		}
		word := w.words[i]
		got, err := w.hasher.Hash(word, w.salt)
		if err != nil {
			w.l.Debug().Err(err).Int("index", i).Msg("skip candidate")
			continue
		}
		if got == w.target {
			return Found(word)
		}
	}
	return NotFound
}
