// Package instruction defines the instruction set of the script runner.
// This package is the contract shared by the parser, which produces
// instruction sequences, and the runner, which executes them.
//
// The set is closed: every instruction type implements Accept by calling the
// matching method of Visitor. Adding an instruction type means adding a
// method to Visitor, which breaks every dispatcher at compile time until it
// handles the new type.
package instruction

import (
	"fmt"
	"image/color"
	"strings"
)

// Cmd names an instruction type. It is used for logging.
type Cmd string

const (
	OpSay           Cmd = "Say"
	OpLabel         Cmd = "Label"
	OpJumpLabel     Cmd = "JumpLabel"
	OpSetVar        Cmd = "SetVar"
	OpIfJump        Cmd = "IfJump"
	OpChoice        Cmd = "Choice"
	OpShowCharacter Cmd = "ShowCharacter"
	OpHideCharacter Cmd = "HideCharacter"
	OpBgImage       Cmd = "BgImage"
	OpBgColor       Cmd = "BgColor"
	OpMusicPlay     Cmd = "MusicPlay"
	OpMusicStop     Cmd = "MusicStop"
	OpSfxPlay       Cmd = "SfxPlay"
)

// Instruction is one executable unit of a script.
// Instructions are values and are never modified after parsing.
// String returns the instruction as a script line.
type Instruction interface {
	Cmd() Cmd
	Accept(v Visitor)
	String() string
	sealed()
}

// Visitor receives an instruction by its concrete type.
type Visitor interface {
	VisitSay(Say)
	VisitLabel(Label)
	VisitJumpLabel(JumpLabel)
	VisitSetVar(SetVar)
	VisitIfJump(IfJump)
	VisitChoice(Choice)
	VisitShowCharacter(ShowCharacter)
	VisitHideCharacter(HideCharacter)
	VisitBgImage(BgImage)
	VisitBgColor(BgColor)
	VisitMusicPlay(MusicPlay)
	VisitMusicStop(MusicStop)
	VisitSfxPlay(SfxPlay)
}

// Say displays a line of dialogue and waits for the player.
type Say struct {
	Speaker string // 空文字列は話者なし
	Text    string
}

// Label marks a jump target. It has no effect when executed.
type Label struct {
	Name string
}

// JumpLabel transfers control to a label unconditionally.
type JumpLabel struct {
	Target string
}

// SetVar evaluates Expression and stores the result under Name.
type SetVar struct {
	Name       string
	Expression string
}

// IfJump jumps to Target when Condition evaluates to a nonzero value.
type IfJump struct {
	Condition string
	Target    string
}

// ChoiceOption is one selectable entry of a Choice.
type ChoiceOption struct {
	Text   string
	Target string
}

// Choice presents options to the player and waits for a selection.
type Choice struct {
	Options []ChoiceOption
}

// ShowCharacter shows (or replaces) a character sprite.
type ShowCharacter struct {
	Name       string
	Expression string
	Placement  Placement
}

// HideCharacter removes a character sprite.
type HideCharacter struct {
	Name string
}

// BgImage replaces the background with an image.
type BgImage struct {
	Path string
}

// BgColor replaces the background with a solid color.
// Source is the color as written in the script (a name or #RRGGBB).
type BgColor struct {
	Color  color.RGBA
	Source string
}

// MusicPlay starts a looping music track, replacing the current one.
type MusicPlay struct {
	Path string
}

// MusicStop stops the current music track.
type MusicStop struct{}

// SfxPlay plays a one-shot sound effect.
type SfxPlay struct {
	Path string
}

func (Say) Cmd() Cmd           { return OpSay }
func (Label) Cmd() Cmd         { return OpLabel }
func (JumpLabel) Cmd() Cmd     { return OpJumpLabel }
func (SetVar) Cmd() Cmd        { return OpSetVar }
func (IfJump) Cmd() Cmd        { return OpIfJump }
func (Choice) Cmd() Cmd        { return OpChoice }
func (ShowCharacter) Cmd() Cmd { return OpShowCharacter }
func (HideCharacter) Cmd() Cmd { return OpHideCharacter }
func (BgImage) Cmd() Cmd       { return OpBgImage }
func (BgColor) Cmd() Cmd       { return OpBgColor }
func (MusicPlay) Cmd() Cmd     { return OpMusicPlay }
func (MusicStop) Cmd() Cmd     { return OpMusicStop }
func (SfxPlay) Cmd() Cmd       { return OpSfxPlay }

func (i Say) Accept(v Visitor)           { v.VisitSay(i) }
func (i Label) Accept(v Visitor)         { v.VisitLabel(i) }
func (i JumpLabel) Accept(v Visitor)     { v.VisitJumpLabel(i) }
func (i SetVar) Accept(v Visitor)        { v.VisitSetVar(i) }
func (i IfJump) Accept(v Visitor)        { v.VisitIfJump(i) }
func (i Choice) Accept(v Visitor)        { v.VisitChoice(i) }
func (i ShowCharacter) Accept(v Visitor) { v.VisitShowCharacter(i) }
func (i HideCharacter) Accept(v Visitor) { v.VisitHideCharacter(i) }
func (i BgImage) Accept(v Visitor)       { v.VisitBgImage(i) }
func (i BgColor) Accept(v Visitor)       { v.VisitBgColor(i) }
func (i MusicPlay) Accept(v Visitor)     { v.VisitMusicPlay(i) }
func (i MusicStop) Accept(v Visitor)     { v.VisitMusicStop(i) }
func (i SfxPlay) Accept(v Visitor)       { v.VisitSfxPlay(i) }

func (Say) sealed()           {}
func (Label) sealed()         {}
func (JumpLabel) sealed()     {}
func (SetVar) sealed()        {}
func (IfJump) sealed()        {}
func (Choice) sealed()        {}
func (ShowCharacter) sealed() {}
func (HideCharacter) sealed() {}
func (BgImage) sealed()       {}
func (BgColor) sealed()       {}
func (MusicPlay) sealed()     {}
func (MusicStop) sealed()     {}
func (SfxPlay) sealed()       {}

func (i Say) String() string {
	if i.Speaker != "" {
		return fmt.Sprintf("say %s: %s", i.Speaker, i.Text)
	}
	return "say " + i.Text
}

func (i Label) String() string     { return "label " + i.Name }
func (i JumpLabel) String() string { return "jump " + i.Target }

func (i SetVar) String() string {
	return fmt.Sprintf("set %s = %s", i.Name, i.Expression)
}

func (i IfJump) String() string {
	return fmt.Sprintf("if %s jump %s", i.Condition, i.Target)
}

func (i Choice) String() string {
	parts := make([]string, len(i.Options))
	for n, opt := range i.Options {
		parts[n] = opt.Text + " -> " + opt.Target
	}
	return "choice " + strings.Join(parts, " | ")
}

func (i ShowCharacter) String() string {
	line := fmt.Sprintf("show %s %s", i.Name, i.Expression)
	if p := i.Placement.String(); p != "" {
		line += " " + p
	}
	return line
}

func (i HideCharacter) String() string { return "hide " + i.Name }
func (i BgImage) String() string       { return "bg image=" + i.Path }

func (i BgColor) String() string {
	if i.Source != "" {
		return "bg color=" + i.Source
	}
	return "bg color=" + HexColor(i.Color)
}

func (i MusicPlay) String() string { return "music play " + i.Path }
func (MusicStop) String() string   { return "music stop" }
func (i SfxPlay) String() string   { return "sfx play " + i.Path }

// HexColor formats c as #rrggbb.
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// IsControlFlow reports whether executing ins only moves the instruction
// pointer. SetVar is not control flow.
func IsControlFlow(ins Instruction) bool {
	switch ins.Cmd() {
	case OpLabel, OpJumpLabel, OpIfJump:
		return true
	default:
		return false
	}
}

// Targets returns the labels ins may transfer control to.
func Targets(ins Instruction) []string {
	switch i := ins.(type) {
	case JumpLabel:
		return []string{i.Target}
	case IfJump:
		return []string{i.Target}
	case Choice:
		targets := make([]string, len(i.Options))
		for n, opt := range i.Options {
			targets[n] = opt.Target
		}
		return targets
	default:
		return nil
	}
}
