// Package dictionary holds the candidate plaintexts the crack server searches.
//
// A Dictionary is loaded once and never changes afterwards, so it is shared by
// reference between all sessions. Each session works on its own Session copy,
// which it may grow without affecting anyone else.
package dictionary

// MaxWordLength is the longest word kept; DES crypt ignores anything past it.
const MaxWordLength = 8

type Dictionary struct {
	words []string
}

// New copies words into an immutable Dictionary.
func New(words []string) *Dictionary {
	return &Dictionary{words: append([]string(nil), words...)}
}

func (d *Dictionary) Len() int {
	return len(d.words)
}

// NewSession returns a private, growable copy of the dictionary.
func (d *Dictionary) NewSession() *Session {
	words := make([]string, len(d.words))
	copy(words, d.words)
	return &Session{words: words}
}

// Session is a dictionary owned by a single connection. It is not safe for
// concurrent mutation; only the owning session goroutine may call Add.
type Session struct {
	words []string
}

func (s *Session) Add(word string) {
	s.words = append(s.words, word)
}

func (s *Session) Len() int {
	return len(s.words)
}

// Snapshot returns the current words. The slice must be treated as read-only
// and is only valid until the next Add.
func (s *Session) Snapshot() []string {
	return s.words[:len(s.words):len(s.words)]
}
