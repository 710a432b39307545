package reconciler

import (
	"strings"

	"github.com/agentstation/utc"
)

// StrategyType represents the type of merge strategy.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

// Name returns the name of the strategy type.
func (s StrategyType) Name() string {
	words := strings.Split(s.String(), "-")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

const (
	// StrategyTypeLastWriterWins keeps whichever side was updated last, with
	// ties going to the local record.
	StrategyTypeLastWriterWins StrategyType = "last-writer-wins"
)

// Decision is the resolution of a differing record pair.
type Decision int

const (
	// KeepLocal leaves the local record untouched.
	KeepLocal Decision = iota
	// ApplyRemote overwrites the local fields with the remote ones.
	ApplyRemote
)

// String returns the decision name.
func (d Decision) String() string {
	if d == ApplyRemote {
		return "apply-remote"
	}
	return "keep-local"
}

// Strategy decides how a differing local/remote pair is resolved. It is
// consulted only after the differ has reported a difference, and decides
// for the whole record.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// Resolve decides from the two updated_at timestamps.
	Resolve(local, remote utc.Time) Decision
}

// LastWriterWins applies the remote version only when it is strictly newer.
type LastWriterWins struct{}

// Type returns the strategy type.
func (LastWriterWins) Type() StrategyType {
	return StrategyTypeLastWriterWins
}

// Description returns a human-readable description.
func (LastWriterWins) Description() string {
	return "Remote changes win when strictly newer; otherwise the local record is kept"
}

// Resolve implements Strategy.
func (LastWriterWins) Resolve(local, remote utc.Time) Decision {
	if remote.Time.After(local.Time) {
		return ApplyRemote
	}
	return KeepLocal
}
