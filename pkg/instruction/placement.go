package instruction

import (
	"strconv"
	"strings"
)

// Preset is a named horizontal position for a character.
type Preset string

const (
	PresetNone   Preset = ""
	PresetLeft   Preset = "left"
	PresetCenter Preset = "center"
	PresetRight  Preset = "right"
)

// Default transform values for characters.
// Coordinates are relative to the stage centre with +Y pointing up.
const (
	DefaultX     = 0.0
	DefaultY     = -100.0
	DefaultLayer = 10.0
	DefaultScale = 1.0
)

// presetPositions は left/center/right の基準座標
var presetPositions = map[Preset][2]float64{
	PresetLeft:   {-400, -100},
	PresetCenter: {0, -100},
	PresetRight:  {400, -100},
}

// ParsePreset returns the preset named s.
func ParsePreset(s string) (Preset, bool) {
	p := Preset(s)
	_, ok := presetPositions[p]
	return p, ok
}

// Placement holds the optional transform parameters of a show instruction.
// A nil field means the parameter was not given.
type Placement struct {
	Preset   Preset
	X        *float64
	Y        *float64
	Scale    *float64
	Rotation *float64 // 度数法
	Layer    *float64
}

// Transform is a fully resolved character transform.
type Transform struct {
	X        float64
	Y        float64
	Layer    float64
	Scale    float64
	Rotation float64 // 度数法
}

// Resolve applies the preset and explicit overrides on top of the defaults.
// Explicit x and y win over the preset.
func (p Placement) Resolve() Transform {
	t := Transform{
		X:     DefaultX,
		Y:     DefaultY,
		Layer: DefaultLayer,
		Scale: DefaultScale,
	}
	if pos, ok := presetPositions[p.Preset]; ok {
		t.X, t.Y = pos[0], pos[1]
	}
	if p.X != nil {
		t.X = *p.X
	}
	if p.Y != nil {
		t.Y = *p.Y
	}
	if p.Layer != nil {
		t.Layer = *p.Layer
	}
	if p.Scale != nil {
		t.Scale = *p.Scale
	}
	if p.Rotation != nil {
		t.Rotation = *p.Rotation
	}
	return t
}

// Equal reports whether both placements carry the same parameters.
func (p Placement) Equal(o Placement) bool {
	return p.Preset == o.Preset &&
		floatPtrEqual(p.X, o.X) &&
		floatPtrEqual(p.Y, o.Y) &&
		floatPtrEqual(p.Scale, o.Scale) &&
		floatPtrEqual(p.Rotation, o.Rotation) &&
		floatPtrEqual(p.Layer, o.Layer)
}

// String returns the placement as show tokens, e.g. "left x=10 scale=0.5".
func (p Placement) String() string {
	var parts []string
	if p.Preset != PresetNone {
		parts = append(parts, string(p.Preset))
	}
	add := func(key string, v *float64) {
		if v != nil {
			parts = append(parts, key+"="+strconv.FormatFloat(*v, 'g', -1, 64))
		}
	}
	add("x", p.X)
	add("y", p.Y)
	add("scale", p.Scale)
	add("rot", p.Rotation)
	add("layer", p.Layer)
	return strings.Join(parts, " ")
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
