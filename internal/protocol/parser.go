package protocol

import (
	"strconv"
	"strings"

	"github.com/ykhdr/crackserver/internal/hashcrack/hasher"
)

const tokenCount = 3

// Parse classifies one request line. The trailing newline must already be
// stripped.
func Parse(line string) Command {
	if line == "" {
		return invalid("empty line")
	}
	if line[0] == ' ' || line[len(line)-1] == ' ' {
		return invalid("leading or trailing space")
	}
	tokens := Tokenize(line)
	if len(tokens) != tokenCount {
		return invalid("expected " + strconv.Itoa(tokenCount) + " tokens, got " + strconv.Itoa(len(tokens)))
	}
	switch tokens[0] {
	case VerbCrypt:
		return parseCrypt(tokens[1], tokens[2])
	case VerbCrack:
		return parseCrack(tokens[1], tokens[2])
	default:
		return invalid("unknown verb")
	}
}

func parseCrypt(plaintext, salt string) Command {
	if !hasher.ValidSalt(salt) {
		return invalid("bad salt")
	}
	return Command{
		Kind:      KindCrypt,
		Plaintext: hasher.Truncate(plaintext),
		Salt:      salt,
	}
}

func parseCrack(ciphertext, threads string) Command {
	if len(ciphertext) != hasher.CiphertextLength {
		return invalid("bad ciphertext length")
	}
	salt := ciphertext[:hasher.SaltLength]
	if !hasher.ValidSalt(salt) {
		return invalid("bad ciphertext salt")
	}
	n, ok := parseThreads(threads)
	if !ok {
		return invalid("bad thread count")
	}
	return Command{
		Kind:       KindCrack,
		Ciphertext: ciphertext,
		Salt:       salt,
		Threads:    n,
	}
}

// parseThreads accepts only plain decimal digits, so signs, spaces and
// exponents are rejected before strconv sees them.
func parseThreads(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < MinThreads || n > MaxThreads {
		return 0, false
	}
	return n, true
}

// Tokenize splits line on runs of spaces. A double-quoted run may contain
// spaces and is joined to whatever surrounds it; the quotes themselves are
// dropped. An unterminated quote runs to the end of the line.
func Tokenize(line string) []string {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quoted  bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			quoted = !quoted
			inToken = true
		case c == ' ' && !quoted:
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteByte(c)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}
