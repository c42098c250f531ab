// Package profile derives the two numeric vectors every product carries: a
// 9-component flavor profile over the taxonomy categories and 4 character
// axes. Derivation is a pure function of the product's classified facts.
package profile

import (
	"math"

	"brewgraph/backend/internal/taxonomy"
)

// Vector sizes
const (
	FlavorDims = taxonomy.CategoryCount
	AxisDims   = 4
	Dims       = FlavorDims + AxisDims
)

// Character axis indices, in vector order
const (
	AxisAcidity = iota
	AxisBody
	AxisRoast
	AxisComplexity
)

// AxisNames maps axis index to its public name
var AxisNames = [AxisDims]string{"acidity", "body", "roast", "complexity"}

// Flavor profile indices used by the axis heuristic
const (
	catFruity = iota
	catFloral
	catSweet
	catNutty
	catSpices
	catRoasted
	catGreen
	catSour
	catOther
)

// RoastLevel is the closed roast vocabulary
type RoastLevel string

const (
	RoastLight       RoastLevel = "light"
	RoastMediumLight RoastLevel = "medium-light"
	RoastMedium      RoastLevel = "medium"
	RoastMediumDark  RoastLevel = "medium-dark"
	RoastDark        RoastLevel = "dark"
)

// RoastLevels lists the vocabulary from lightest to darkest
var RoastLevels = []RoastLevel{RoastLight, RoastMediumLight, RoastMedium, RoastMediumDark, RoastDark}

var roastBase = map[RoastLevel]float64{
	RoastLight:       -1,
	RoastMediumLight: -0.5,
	RoastMedium:      0,
	RoastMediumDark:  0.5,
	RoastDark:        1,
}

// ProcessKind is the coarse processing method used by the axis heuristic
type ProcessKind string

const (
	ProcessWashed    ProcessKind = "washed"
	ProcessNatural   ProcessKind = "natural"
	ProcessHoney     ProcessKind = "honey"
	ProcessAnaerobic ProcessKind = "anaerobic"
	ProcessWetHulled ProcessKind = "wet-hulled"
	ProcessOther     ProcessKind = "other"
)

var acidityBias = map[ProcessKind]float64{
	ProcessWashed:    0.3,
	ProcessNatural:   -0.1,
	ProcessHoney:     0,
	ProcessAnaerobic: 0.1,
	ProcessWetHulled: -0.4,
}

var bodyBias = map[ProcessKind]float64{
	ProcessWashed:    -0.2,
	ProcessNatural:   0.3,
	ProcessHoney:     0.2,
	ProcessAnaerobic: 0.2,
	ProcessWetHulled: 0.4,
}

// Note is one classified tasting note
type Note struct {
	AttributeID   string
	CategoryIndex int
}

// Input is everything the deriver reads from a product
type Input struct {
	Roast     RoastLevel // "" when unknown
	Processes []ProcessKind
	Notes     []Note
}

// Profile holds the derived vectors
type Profile struct {
	Flavor [FlavorDims]float64
	Axes   [AxisDims]float64
}

// FlavorSlice returns the flavor profile as a slice
func (p Profile) FlavorSlice() []float64 {
	out := make([]float64, FlavorDims)
	copy(out, p.Flavor[:])
	return out
}

// AxesSlice returns the character axes as a slice
func (p Profile) AxesSlice() []float64 {
	out := make([]float64, AxisDims)
	copy(out, p.Axes[:])
	return out
}

// Derive computes both vectors. Missing inputs degrade to zero contributions;
// a product with no notes, no roast and no process gets all-zero vectors.
func Derive(in Input) Profile {
	var p Profile
	p.Flavor = flavorProfile(in.Notes)
	p.Axes = characterAxes(in, p.Flavor)
	return p
}

// flavorProfile is the share of notes falling in each category
func flavorProfile(notes []Note) [FlavorDims]float64 {
	var f [FlavorDims]float64
	n := 0
	for _, note := range notes {
		if note.CategoryIndex < 0 || note.CategoryIndex >= FlavorDims {
			continue
		}
		f[note.CategoryIndex]++
		n++
	}
	if n == 0 {
		return f
	}
	for i := range f {
		f[i] = clamp(f[i]/float64(n), 0, 1)
	}
	return f
}

func characterAxes(in Input, f [FlavorDims]float64) [AxisDims]float64 {
	var axes [AxisDims]float64

	base, hasRoast := roastBase[in.Roast]
	hasNotes := false
	for _, v := range f {
		if v > 0 {
			hasNotes = true
			break
		}
	}

	if hasRoast {
		axes[AxisAcidity] += -0.5 * base
		axes[AxisBody] += 0.5 * base
		axes[AxisRoast] += 0.8 * base
	}

	axes[AxisAcidity] += meanBias(in.Processes, acidityBias)
	axes[AxisBody] += meanBias(in.Processes, bodyBias)

	if hasNotes {
		axes[AxisAcidity] += (f[catFruity] + f[catSour] + f[catFloral] - f[catRoasted] - f[catNutty]) * 0.6
		axes[AxisBody] += (f[catNutty] + f[catSweet] + f[catRoasted] - f[catFruity] - f[catFloral]) * 0.5
		axes[AxisRoast] += (f[catRoasted] - 0.5*(f[catFruity]+f[catFloral])) * 0.4

		attrs := make(map[string]bool)
		cats := 0
		for _, v := range f {
			if v > 0 {
				cats++
			}
		}
		for _, n := range in.Notes {
			attrs[n.AttributeID] = true
		}
		axes[AxisComplexity] += 2*math.Min(1, float64(len(attrs))/6) - 1 + 0.1*float64(cats-1)
	}
	for _, k := range in.Processes {
		if k == ProcessAnaerobic {
			axes[AxisComplexity] += 0.2
			break
		}
	}

	for i := range axes {
		axes[i] = clamp(axes[i], -1, 1)
	}
	return axes
}

func meanBias(kinds []ProcessKind, bias map[ProcessKind]float64) float64 {
	var sum float64
	n := 0
	for _, k := range kinds {
		if b, ok := bias[k]; ok {
			sum += b
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
