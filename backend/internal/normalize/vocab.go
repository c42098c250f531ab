package normalize

import (
	"strings"

	"brewgraph/backend/internal/profile"
	"brewgraph/backend/internal/textfold"
)

// ParseRoast maps free roast text onto the closed roast vocabulary.
// Unrecognised text reports false and produces no RoastLevel node.
func ParseRoast(raw string) (profile.RoastLevel, bool) {
	words := textfold.LowerWords(raw)
	has := func(ws ...string) bool {
		for _, w := range words {
			for _, want := range ws {
				if w == want {
					return true
				}
			}
		}
		return false
	}

	medium := has("medium", "mid", "city")
	switch {
	case medium && has("light", "lighter"):
		return profile.RoastMediumLight, true
	case medium && has("dark", "darker"):
		return profile.RoastMediumDark, true
	case has("light", "blonde", "cinnamon", "nordic", "filter"):
		return profile.RoastLight, true
	case has("dark", "french", "italian", "espresso"):
		return profile.RoastDark, true
	case medium:
		return profile.RoastMedium, true
	}
	return "", false
}

// RoastName is the display name of a roast level ("medium-light" -> "Medium-Light")
func RoastName(level profile.RoastLevel) string {
	parts := strings.Split(string(level), "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

var processKeywords = []struct {
	kind  profile.ProcessKind
	words [][]string
}{
	// checked in order: "anaerobic natural" is anaerobic, "wet hulled" is not washed
	{profile.ProcessAnaerobic, [][]string{{"anaerobic"}, {"carbonic"}, {"anoxic"}}},
	{profile.ProcessWetHulled, [][]string{{"wet", "hulled"}, {"giling", "basah"}, {"semi", "washed"}}},
	{profile.ProcessHoney, [][]string{{"honey"}, {"pulped", "natural"}, {"miel"}}},
	{profile.ProcessNatural, [][]string{{"natural"}, {"dry"}, {"sun", "dried"}}},
	{profile.ProcessWashed, [][]string{{"washed"}, {"wet"}, {"lavado"}, {"fully", "washed"}}},
}

// ProcessKindOf infers the coarse process kind of one process value
func ProcessKindOf(raw string) profile.ProcessKind {
	words := textfold.LowerWords(raw)
	for _, pk := range processKeywords {
		for _, phrase := range pk.words {
			if hasPhrase(words, phrase) {
				return pk.kind
			}
		}
	}
	return profile.ProcessOther
}

func hasPhrase(words, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		ok := true
		for j := range phrase {
			if words[i+j] != phrase[j] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
