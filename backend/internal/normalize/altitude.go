package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"brewgraph/backend/internal/graph"
)

var altitudeNumber = regexp.MustCompile(`\d[\d,.]*`)

// ParseAltitude keeps the raw text and extracts the lowest and highest
// figure of at least 100 as metre bounds. Thousands separators are accepted
// ("1,800 - 2,100 masl"). Feet are converted.
func ParseAltitude(raw string) graph.Altitude {
	raw = strings.Join(strings.Fields(raw), " ")
	alt := graph.Altitude{Raw: raw}
	if raw == "" {
		return alt
	}

	feet := strings.Contains(strings.ToLower(raw), "ft") || strings.Contains(strings.ToLower(raw), "feet")
	for _, m := range altitudeNumber.FindAllString(raw, -1) {
		digits := strings.NewReplacer(",", "", ".", "").Replace(m)
		n, err := strconv.Atoi(digits)
		if err != nil || n < 100 {
			continue
		}
		if feet {
			n = int(float64(n)*0.3048 + 0.5)
		}
		if alt.Min == 0 || n < alt.Min {
			alt.Min = n
		}
		if n > alt.Max {
			alt.Max = n
		}
	}
	return alt
}
