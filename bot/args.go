package bot

import (
	"math/rand/v2"
	"strconv"
)

// Args is the typed argument handed to a handler: either an unsigned 16-bit
// value or nothing.
type Args struct {
	value uint16
	set   bool
}

// NoArgs is the empty argument.
var NoArgs = Args{}

// U16 wraps v as an argument.
func U16(v uint16) Args {
	return Args{value: v, set: true}
}

// U16 returns the wrapped value, if any.
func (a Args) U16() (uint16, bool) {
	return a.value, a.set
}

func (a Args) String() string {
	if !a.set {
		return "none"
	}
	return strconv.FormatUint(uint64(a.value), 10)
}

// Extractor turns the tokens following a trigger into Args.
type Extractor func(rest []string, rng *rand.Rand) Args

// U16OrDefault parses the first token, falling back to def.
func U16OrDefault(def uint16) Extractor {
	return func(rest []string, _ *rand.Rand) Args {
		if v, ok := parseU16(rest); ok {
			return U16(v)
		}
		return U16(def)
	}
}

// OptionalU16 parses the first token, yielding NoArgs when it is absent or invalid.
func OptionalU16(rest []string, _ *rand.Rand) Args {
	if v, ok := parseU16(rest); ok {
		return U16(v)
	}
	return NoArgs
}

// RandomIndex draws a value uniformly from [0, n) without consuming tokens.
func RandomIndex(n int) Extractor {
	return func(_ []string, rng *rand.Rand) Args {
		if n <= 0 {
			return NoArgs
		}
		return U16(uint16(rng.IntN(n)))
	}
}

// None ignores all tokens.
func None([]string, *rand.Rand) Args {
	return NoArgs
}

func parseU16(rest []string) (uint16, bool) {
	if len(rest) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(rest[0], 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
