package window

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zurustar/vnscript/pkg/instruction"
	"github.com/zurustar/vnscript/pkg/runner"
	"github.com/zurustar/vnscript/pkg/stage"
)

const choiceScript = `say Hello
choice Tea -> tea | Coffee -> coffee
label tea
say Tea it is
jump end
label coffee
say Coffee it is
label end
`

type fakeMixer struct {
	updates int
	muted   bool
}

func (m *fakeMixer) Update()             { m.updates++ }
func (m *fakeMixer) SetMuted(muted bool) { m.muted = muted }
func (m *fakeMixer) IsMuted() bool       { return m.muted }

func newTestGame(t *testing.T, source string, opts ...Option) (*Game, *runner.Runner, *stage.Stage) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := stage.New()
	r := runner.New(
		runner.WithLogger(log),
		runner.WithDialogue(st),
		runner.WithScene(st),
		runner.WithAudio(st),
	)
	if warnings := r.LoadSource("test.vn", source); len(warnings) > 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	opts = append([]Option{WithLogger(log)}, opts...)
	return NewGame(r, st, opts...), r, st
}

func TestNewGame(t *testing.T) {
	g, _, _ := newTestGame(t, "say hi", WithTimeout(10*time.Second), WithTitle("demo"))

	if g.timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", g.timeout)
	}
	if g.title != "demo" {
		t.Errorf("expected title demo, got %q", g.title)
	}
	if g.selected != 0 {
		t.Errorf("expected selected 0, got %d", g.selected)
	}
}

func TestLayout(t *testing.T) {
	g, _, _ := newTestGame(t, "say hi")

	width, height := g.Layout(0, 0)
	if width != ScreenWidth || height != ScreenHeight {
		t.Errorf("expected %dx%d, got %dx%d", ScreenWidth, ScreenHeight, width, height)
	}
}

func TestUpdate_Timeout(t *testing.T) {
	g, _, _ := newTestGame(t, "say hi", WithTimeout(time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	if err := g.Update(); !errors.Is(err, ebiten.Termination) {
		t.Errorf("expected ebiten.Termination, got %v", err)
	}
}

func TestUpdate_StepsRunner(t *testing.T) {
	mx := &fakeMixer{}
	g, r, st := newTestGame(t, "say Hana: hi", WithMixer(mx))

	if err := g.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if r.State() != runner.StateAwaitingAdvance {
		t.Errorf("expected awaiting advance, got %v", r.State())
	}
	line, ok := st.Line()
	if !ok || line.Speaker != "Hana" || line.Text != "hi" {
		t.Errorf("unexpected line %+v", line)
	}
	if mx.updates != 1 {
		t.Errorf("expected mixer updated once, got %d", mx.updates)
	}
	if len(st.Drain()) != 0 {
		t.Error("tick should drain stage events")
	}
}

func TestApply_AdvanceToEnd(t *testing.T) {
	g, r, _ := newTestGame(t, "say one\nsay two")

	g.tick()
	if err := g.apply(action{kind: actAdvance}); err != nil {
		t.Fatal(err)
	}
	g.tick()
	if r.PC() != 1 {
		t.Fatalf("expected pc 1, got %d", r.PC())
	}
	g.apply(action{kind: actAdvance})
	g.tick()
	if !r.Finished() {
		t.Errorf("expected finished, got %v", r.State())
	}
}

func TestApply_ToggleMute(t *testing.T) {
	mx := &fakeMixer{}
	g, _, _ := newTestGame(t, "say hi", WithMixer(mx))

	g.apply(action{kind: actMute})
	if !mx.muted {
		t.Error("expected muted after toggle")
	}
	g.apply(action{kind: actMute})
	if mx.muted {
		t.Error("expected unmuted after second toggle")
	}

	// ミキサー無しでもパニックしない
	g2, _, _ := newTestGame(t, "say hi")
	g2.apply(action{kind: actMute})
}

func TestApply_Quit(t *testing.T) {
	g, _, _ := newTestGame(t, "say hi")
	if err := g.apply(action{kind: actQuit}); !errors.Is(err, ebiten.Termination) {
		t.Errorf("expected ebiten.Termination, got %v", err)
	}
}

func TestApply_ChoiceKeyboard(t *testing.T) {
	g, r, st := newTestGame(t, choiceScript)

	g.tick()
	g.apply(action{kind: actAdvance})
	g.tick()
	if r.State() != runner.StateAwaitingChoice {
		t.Fatalf("expected awaiting choice, got %v", r.State())
	}

	g.apply(action{kind: actUp})
	if g.selected != 0 {
		t.Errorf("up at the top should stay at 0, got %d", g.selected)
	}
	g.apply(action{kind: actDown})
	g.apply(action{kind: actDown})
	if g.selected != 1 {
		t.Errorf("down should stop at the last option, got %d", g.selected)
	}

	g.apply(action{kind: actConfirm})
	if len(st.Choices()) != 0 {
		t.Error("stage choices should be cleared after selection")
	}
	if g.selected != 0 {
		t.Error("selection cursor should reset")
	}

	for i := 0; i < 3; i++ {
		g.tick()
	}
	line, _ := st.Line()
	if line.Text != "Coffee it is" {
		t.Errorf("expected coffee branch, got %q", line.Text)
	}
}

func TestApply_ChoiceDigitOutOfRange(t *testing.T) {
	g, r, _ := newTestGame(t, "choice A -> a | B -> b\nlabel a\nlabel b")

	g.tick()
	g.apply(action{kind: actSelect, index: 5})
	if r.State() != runner.StateAwaitingChoice {
		t.Errorf("out of range digit should keep the choice pending, got %v", r.State())
	}
	g.apply(action{kind: actSelect, index: 0})
	if r.State() != runner.StateRunning {
		t.Errorf("expected running after selection, got %v", r.State())
	}
}

func TestApply_ChoiceMissingLabel(t *testing.T) {
	g, r, st := newTestGame(t, "choice A -> nowhere\nsay after")

	g.tick()
	g.apply(action{kind: actSelect, index: 0})
	if r.Suspended() {
		t.Error("runner should not stay suspended")
	}
	if len(st.Choices()) != 0 {
		t.Error("choices should be cleared")
	}
}

func TestChoiceRects(t *testing.T) {
	if choiceRects(0) != nil {
		t.Error("no options should produce no rects")
	}
	rects := choiceRects(3)
	if len(rects) != 3 {
		t.Fatalf("expected 3 rects, got %d", len(rects))
	}
	for i, r := range rects {
		if r.Dx() != choiceWidth || r.Dy() != choiceHeight {
			t.Errorf("rect %d has size %dx%d", i, r.Dx(), r.Dy())
		}
		if r.Max.Y > dialogueRect().Min.Y {
			t.Errorf("rect %d overlaps the dialogue box", i)
		}
		if i > 0 && r.Min.Y != rects[i-1].Max.Y+choiceGap {
			t.Errorf("rect %d is not stacked below rect %d", i, i-1)
		}
	}
}

func TestChoiceAt(t *testing.T) {
	rects := choiceRects(2)
	c := rects[1].Min.Add(image.Pt(5, 5))

	if got := choiceAt(c.X, c.Y, 2); got != 1 {
		t.Errorf("expected option 1, got %d", got)
	}
	if got := choiceAt(0, 0, 2); got != -1 {
		t.Errorf("expected -1 outside the buttons, got %d", got)
	}
}

func TestCharacterOptions(t *testing.T) {
	c := stage.Character{
		Name:      "hana",
		Transform: instruction.Placement{}.Resolve(),
	}
	op := characterOptions(c, image.Rect(0, 0, 100, 200))

	x, y := op.GeoM.Apply(50, 100)
	wantX, wantY := stage.ToScreen(0, -100, ScreenWidth, ScreenHeight)
	if x != wantX || y != wantY {
		t.Errorf("sprite centre mapped to (%v, %v), want (%v, %v)", x, y, wantX, wantY)
	}
}

func TestWrapText(t *testing.T) {
	byRune := func(s string) float64 { return float64(len([]rune(s))) }

	tests := []struct {
		name  string
		in    string
		width float64
		want  []string
	}{
		{"fits", "hello", 10, []string{"hello"}},
		{"word break", "hello brave new world", 11, []string{"hello brave", "new world"}},
		{"rune break", "こんにちは世界", 4, []string{"こんにち", "は世界"}},
		{"newline", "a\nb", 10, []string{"a", "b"}},
		{"empty", "", 10, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.in, tt.width, byRune)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("wrapText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
