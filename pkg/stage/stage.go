// Package stage holds the presentation state a script produces: the current
// line, a pending choice, the background, the visible characters and the
// audio cues. It implements the runner's Dialogue, Scene and Audio
// collaborators and never draws anything itself; hosts render from it.
package stage

import (
	"fmt"
	"image/color"
	"slices"
	"sort"

	"github.com/zurustar/vnscript/pkg/assets"
	"github.com/zurustar/vnscript/pkg/instruction"
)

// MaxEvents is the number of undrained events a Stage keeps.
const MaxEvents = 256

// MaxHistory is the number of dialogue lines kept in the history.
const MaxHistory = 200

// Line is one line of dialogue.
type Line struct {
	Speaker string
	Text    string
}

func (l Line) String() string {
	if l.Speaker == "" {
		return l.Text
	}
	return l.Speaker + ": " + l.Text
}

// Background is either an image or a solid color.
type Background struct {
	Image string // スクリプト上のパス、空なら単色
	Color color.RGBA
}

// IsImage reports whether the background is an image.
func (b Background) IsImage() bool {
	return b.Image != ""
}

// AssetPath returns the asset path of the background image.
func (b Background) AssetPath() string {
	return assets.BackgroundPath(b.Image)
}

// Character is a visible character sprite.
type Character struct {
	Name       string
	Expression string
	Transform  instruction.Transform
	order      int
}

// AssetPath returns the asset path of the character's current sprite.
func (c Character) AssetPath() string {
	return assets.CharacterPath(c.Name, c.Expression)
}

// EventKind identifies what changed on the stage.
type EventKind string

const (
	EventLine       EventKind = "line"
	EventChoices    EventKind = "choices"
	EventBackground EventKind = "background"
	EventShow       EventKind = "show"
	EventHide       EventKind = "hide"
	EventMusic      EventKind = "music"
	EventMusicStop  EventKind = "music-stop"
	EventSfx        EventKind = "sfx"
)

// Event records one change, in the order the runner issued it.
type Event struct {
	Kind    EventKind
	Line    Line
	Choices []instruction.ChoiceOption
	Subject string // 背景・キャラクター名・音声のパス
}

// String returns a one-line description suitable for a console.
func (e Event) String() string {
	switch e.Kind {
	case EventLine:
		return e.Line.String()
	case EventChoices:
		return fmt.Sprintf("[choice: %d options]", len(e.Choices))
	case EventMusicStop:
		return "[music stopped]"
	default:
		return fmt.Sprintf("[%s %s]", e.Kind, e.Subject)
	}
}

// Stage はスクリプトが作る表示状態を保持する
type Stage struct {
	line       Line
	hasLine    bool
	choices    []instruction.ChoiceOption
	background Background
	characters map[string]*Character
	showSeq    int
	music      string
	history    []Line
	events     []Event
	version    uint64
}

// New Stageを作成
// The initial background is black.
func New() *Stage {
	return &Stage{
		background: Background{Color: color.RGBA{A: 255}},
		characters: make(map[string]*Character),
	}
}

func (s *Stage) record(e Event) {
	s.version++
	if len(s.events) >= MaxEvents {
		s.events = slices.Delete(s.events, 0, 1)
	}
	s.events = append(s.events, e)
}

// DisplayLine shows a line of dialogue and clears any pending choice.
func (s *Stage) DisplayLine(speaker, text string) {
	l := Line{Speaker: speaker, Text: text}
	s.line = l
	s.hasLine = true
	s.choices = nil
	s.history = append(s.history, l)
	if len(s.history) > MaxHistory {
		s.history = slices.Delete(s.history, 0, len(s.history)-MaxHistory)
	}
	s.record(Event{Kind: EventLine, Line: l})
}

// DisplayChoices shows the options of a choice.
func (s *Stage) DisplayChoices(options []instruction.ChoiceOption) {
	s.choices = slices.Clone(options)
	s.record(Event{Kind: EventChoices, Choices: slices.Clone(options)})
}

// ClearChoices removes the pending choice after the host resolved it.
func (s *Stage) ClearChoices() {
	if s.choices != nil {
		s.choices = nil
		s.version++
	}
}

// ClearLine removes the current line after the player advanced.
func (s *Stage) ClearLine() {
	if s.hasLine {
		s.hasLine = false
		s.line = Line{}
		s.version++
	}
}

func (s *Stage) SetBackgroundImage(p string) {
	s.background = Background{Image: p}
	s.record(Event{Kind: EventBackground, Subject: p})
}

func (s *Stage) SetBackgroundColor(c color.RGBA) {
	s.background = Background{Color: c}
	s.record(Event{Kind: EventBackground, Subject: instruction.HexColor(c)})
}

// ShowCharacter shows a character or replaces its sprite and transform.
// A replaced character keeps its place in the drawing order.
func (s *Stage) ShowCharacter(name, expression string, t instruction.Transform) {
	if c, ok := s.characters[name]; ok {
		c.Expression = expression
		c.Transform = t
	} else {
		s.showSeq++
		s.characters[name] = &Character{Name: name, Expression: expression, Transform: t, order: s.showSeq}
	}
	s.record(Event{Kind: EventShow, Subject: name + " " + expression})
}

// HideCharacter removes a character. Hiding an absent character is a no-op.
func (s *Stage) HideCharacter(name string) {
	if _, ok := s.characters[name]; !ok {
		return
	}
	delete(s.characters, name)
	s.record(Event{Kind: EventHide, Subject: name})
}

func (s *Stage) PlayMusic(p string) {
	s.music = p
	s.record(Event{Kind: EventMusic, Subject: p})
}

func (s *Stage) StopMusic() {
	s.music = ""
	s.record(Event{Kind: EventMusicStop})
}

func (s *Stage) PlaySfx(p string) {
	s.record(Event{Kind: EventSfx, Subject: p})
}

// Line returns the current line of dialogue.
func (s *Stage) Line() (Line, bool) {
	return s.line, s.hasLine
}

// Choices returns the pending options, or nil.
func (s *Stage) Choices() []instruction.ChoiceOption {
	return slices.Clone(s.choices)
}

// Background returns the current background.
func (s *Stage) Background() Background {
	return s.background
}

// Characters returns the visible characters in drawing order: by layer,
// then by the order they were first shown.
func (s *Stage) Characters() []Character {
	list := make([]Character, 0, len(s.characters))
	for _, c := range s.characters {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Transform.Layer != list[j].Transform.Layer {
			return list[i].Transform.Layer < list[j].Transform.Layer
		}
		return list[i].order < list[j].order
	})
	return list
}

// Music returns the path of the current music track, or "".
func (s *Stage) Music() string {
	return s.music
}

// History returns the most recent lines of dialogue, oldest first.
func (s *Stage) History() []Line {
	return slices.Clone(s.history)
}

// Drain returns the events recorded since the previous call.
func (s *Stage) Drain() []Event {
	events := s.events
	s.events = nil
	return events
}

// Version increases on every change. Hosts can compare it to skip redraws.
func (s *Stage) Version() uint64 {
	return s.version
}

// Reset clears everything except the event queue.
func (s *Stage) Reset() {
	*s = Stage{
		background: Background{Color: color.RGBA{A: 255}},
		characters: make(map[string]*Character),
		events:     s.events,
		version:    s.version + 1,
	}
}

// ToScreen converts stage coordinates (origin at the centre, +Y up) to
// screen coordinates (origin at the top left, +Y down).
func ToScreen(x, y float64, width, height int) (float64, float64) {
	return float64(width)/2 + x, float64(height)/2 - y
}
