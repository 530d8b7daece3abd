package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Signatures are deterministic SHA-256 digests over stable JSON payloads.
// They key the negative-memory table and identify states across runs, so the
// payload construction must stay byte-stable for equal inputs.

func hashPayload(payload interface{}) string {
	// encoding/json emits struct fields in declaration order and sorts map
	// keys, which keeps the digest stable for equal payloads.
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are built from plain values below; marshal cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type statePayload struct {
	Section      string   `json:"section"`
	Speaker      string   `json:"speaker"`
	Decision     int      `json:"decision"`
	TailFragment string   `json:"tail_fragment"`
	FamiliesSeen []string `json:"families_seen"`
}

// StateSignature produces a deterministic signature for an assembly state.
func StateSignature(s *AssemblyState) string {
	tail := ""
	if f := s.TailFragment(); f != nil {
		tail = f.ID
	}
	families := make([]string, 0)
	for family, n := range s.ObligationHits[s.Section] {
		if n > 0 {
			families = append(families, family)
		}
	}
	sort.Strings(families)
	return hashPayload(statePayload{
		Section:      s.Section,
		Speaker:      s.Speaker,
		Decision:     s.Decision,
		TailFragment: tail,
		FamiliesSeen: families,
	})
}

type tailPayload struct {
	TailTokens []string `json:"tail_tokens"`
}

// TailSignature produces a deterministic signature for a token tail.
func TailSignature(tailTokens []string) string {
	return hashPayload(tailPayload{TailTokens: tailTokens})
}

type failurePayload struct {
	StateSignature string `json:"state_signature"`
	FragmentID     string `json:"fragment_id"`
}

// FailureSignature keys a (state, attempted fragment) pair for the
// negative-memory table.
func FailureSignature(s *AssemblyState, fragmentID string) string {
	return hashPayload(failurePayload{
		StateSignature: StateSignature(s),
		FragmentID:     fragmentID,
	})
}
