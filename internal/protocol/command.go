// Package protocol parses the line-oriented crack server protocol.
//
// Every request is a single line holding exactly three tokens:
//
//	crypt <plaintext> <salt>
//	crack <ciphertext> <threadcount>
//
// and every response is a single newline-terminated line.
package protocol

const (
	VerbCrypt = "crypt"
	VerbCrack = "crack"

	// Failed answers a crack that matched nothing.
	Failed = ":failed"
	// Invalid answers any malformed request.
	Invalid = ":invalid"

	MinThreads = 1
	MaxThreads = 50
)

type Kind int

const (
	KindInvalid Kind = iota
	KindCrypt
	KindCrack
)

func (k Kind) String() string {
	switch k {
	case KindCrypt:
		return VerbCrypt
	case KindCrack:
		return VerbCrack
	default:
		return "invalid"
	}
}

// Command is one parsed request line. Only the fields of its Kind are set;
// Reason explains why an invalid line was rejected.
type Command struct {
	Kind Kind

	Plaintext  string
	Ciphertext string
	Salt       string
	Threads    int

	Reason string
}

func invalid(reason string) Command {
	return Command{Kind: KindInvalid, Reason: reason}
}
