package normalize

import (
	"fmt"
	"strings"

	"brewgraph/backend/internal/graph"
)

// regionSeparator splits a "Country - Region" value. The hyphen must be
// spaced so hyphenated names ("Guinea-Bissau") stay whole.
const regionSeparator = " - "

// unattachedRegion ends the warning for a region no country could take
const unattachedRegion = "has no country to attach to"

// IsUnattachedRegion reports whether a Build warning is a dropped region
func IsUnattachedRegion(warning string) bool {
	return strings.HasSuffix(warning, unattachedRegion)
}

type originPair struct {
	country string
	region  string
}

// ParseOrigins turns the raw origin and region fields into origin nodes.
// Every country yields a core-country node; every paired region additionally
// yields a region-qualified node. A single country takes every region;
// otherwise regions pair with countries by position and any surplus is
// dropped with a warning.
func ParseOrigins(originField, regionField string) ([]graph.OriginNode, []string) {
	var warnings []string

	var pairs []originPair
	var open []int // pairs still waiting for a region
	for _, v := range SplitMulti(originField) {
		country, region := v, ""
		if i := strings.Index(v, regionSeparator); i >= 0 {
			country, region = v[:i], v[i+len(regionSeparator):]
		}
		country, region = strings.Trim(country, " -"), strings.Trim(region, " -")
		if NodeID(country) == "" {
			warnings = append(warnings, fmt.Sprintf("origin %q has no country", v))
			continue
		}
		if NodeID(region) == "" {
			region = ""
			open = append(open, len(pairs))
		}
		pairs = append(pairs, originPair{country: country, region: region})
	}

	regions := SplitMulti(regionField)
	switch {
	case len(regions) == 0:
	case len(pairs) == 0:
		warnings = append(warnings, fmt.Sprintf("region %q %s", regionField, unattachedRegion))
	case len(pairs) == 1 && len(open) == 1:
		country := pairs[0].country
		pairs[0].region = regions[0]
		for _, r := range regions[1:] {
			pairs = append(pairs, originPair{country: country, region: r})
		}
	default:
		for i, r := range regions {
			if i >= len(open) {
				warnings = append(warnings, fmt.Sprintf("region %q %s", r, unattachedRegion))
				continue
			}
			pairs[open[i]].region = r
		}
	}

	seen := make(map[string]bool)
	var nodes []graph.OriginNode
	add := func(n graph.OriginNode) {
		if n.ID == "" || seen[n.ID] {
			return
		}
		seen[n.ID] = true
		nodes = append(nodes, n)
	}
	for _, p := range pairs {
		add(CoreOrigin(p.country))
		if p.region != "" {
			add(RegionOrigin(p.country, p.region))
		}
	}
	return nodes, warnings
}

// CoreOrigin builds the core-country node for a country
func CoreOrigin(country string) graph.OriginNode {
	country = strings.Join(strings.Fields(country), " ")
	return graph.OriginNode{
		ID:      OriginID(country, ""),
		Name:    country,
		Country: country,
	}
}

// RegionOrigin builds the region-qualified node. A blank region degrades to
// the core-country node.
func RegionOrigin(country, region string) graph.OriginNode {
	region = strings.Join(strings.Fields(region), " ")
	if NodeID(region) == "" {
		return CoreOrigin(country)
	}
	country = strings.Join(strings.Fields(country), " ")
	return graph.OriginNode{
		ID:      OriginID(country, region),
		Name:    region + ", " + country,
		Country: country,
		Region:  region,
	}
}

// CanonicalOrigin recomputes the canonical form of a stored origin node from
// its country/region properties, falling back to parsing its id when the
// properties are missing (legacy nodes).
func CanonicalOrigin(n graph.OriginNode) graph.OriginNode {
	country, region := n.Country, n.Region
	if NodeID(country) == "" {
		country, region = ParseOriginID(n.ID)
	}
	return RegionOrigin(country, region)
}
