package instruction

import "testing"

func ptr(v float64) *float64 { return &v }

func TestPlacementResolve(t *testing.T) {
	tests := []struct {
		name      string
		placement Placement
		want      Transform
	}{
		{
			name: "defaults",
			want: Transform{X: 0, Y: -100, Layer: 10, Scale: 1},
		},
		{
			name:      "left preset",
			placement: Placement{Preset: PresetLeft},
			want:      Transform{X: -400, Y: -100, Layer: 10, Scale: 1},
		},
		{
			name:      "right preset",
			placement: Placement{Preset: PresetRight},
			want:      Transform{X: 400, Y: -100, Layer: 10, Scale: 1},
		},
		{
			name:      "explicit x wins over preset",
			placement: Placement{Preset: PresetRight, X: ptr(120)},
			want:      Transform{X: 120, Y: -100, Layer: 10, Scale: 1},
		},
		{
			name:      "all overrides",
			placement: Placement{X: ptr(1), Y: ptr(2), Scale: ptr(0.5), Rotation: ptr(90), Layer: ptr(3)},
			want:      Transform{X: 1, Y: 2, Layer: 3, Scale: 0.5, Rotation: 90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.placement.Resolve(); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePreset(t *testing.T) {
	for _, name := range []string{"left", "center", "right"} {
		if p, ok := ParsePreset(name); !ok || string(p) != name {
			t.Errorf("ParsePreset(%q) = %q, %v", name, p, ok)
		}
	}
	for _, name := range []string{"", "middle", "LEFT"} {
		if _, ok := ParsePreset(name); ok {
			t.Errorf("ParsePreset(%q) should fail", name)
		}
	}
}

func TestPlacementEqual(t *testing.T) {
	a := Placement{Preset: PresetLeft, X: ptr(1)}
	b := Placement{Preset: PresetLeft, X: ptr(1)}
	if !a.Equal(b) {
		t.Error("placements with equal values should be equal")
	}
	if a.Equal(Placement{Preset: PresetLeft}) {
		t.Error("nil and set x should differ")
	}
	if a.Equal(Placement{Preset: PresetLeft, X: ptr(2)}) {
		t.Error("different x should differ")
	}
}

func TestPlacementString(t *testing.T) {
	p := Placement{Preset: PresetCenter, Y: ptr(-50), Scale: ptr(1.5), Rotation: ptr(-15), Layer: ptr(2)}
	want := "center y=-50 scale=1.5 rot=-15 layer=2"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Placement{}).String(); got != "" {
		t.Errorf("empty placement String() = %q", got)
	}
}
