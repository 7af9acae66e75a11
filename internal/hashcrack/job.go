// Package hashcrack searches a dictionary for the plaintext behind a
// ciphertext by splitting the dictionary into contiguous slices and scanning
// them concurrently.
package hashcrack

// Job is one crack request against a read-only dictionary snapshot.
// Threads is a hint; zero or negative means no hint.
type Job struct {
	Ciphertext string
	Salt       string
	Threads    int
	Words      []string
}

type Result struct {
	Word  string
	Found bool
}

var NotFound = Result{}

func Found(word string) Result {
	return Result{Word: word, Found: true}
}

// Slice is an inclusive index range [Start, End]. End < Start denotes an
// empty range.
type Slice struct {
	Start int
	End   int
}

func (s Slice) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// EffectiveThreads collapses to a single worker whenever the hint is absent
// or exceeds the dictionary size. It never hands out one worker per word.
func EffectiveThreads(size, hint int) int {
	if hint <= 0 || size < hint {
		return 1
	}
	return hint
}

// Partition splits [0, size) into EffectiveThreads(size, hint) contiguous
// slices; the last slice absorbs the remainder.
func Partition(size, hint int) []Slice {
	n := EffectiveThreads(size, hint)
	perThread := size / n
	remainder := size % n
	slices := make([]Slice, n)
	for i := range slices {
		slices[i] = Slice{
			Start: i * perThread,
			End:   (i+1)*perThread - 1,
		}
	}
	slices[n-1].End += remainder
	return slices
}
