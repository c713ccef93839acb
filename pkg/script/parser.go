// Package script turns script source text into an instruction sequence.
//
// The format is line oriented: one instruction per line, blank lines and
// lines starting with '#' are ignored. A line the parser does not
// understand produces a ParseWarning and is skipped; parsing always
// continues with the next line.
package script

import (
	"image/color"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/image/colornames"

	"github.com/zurustar/vnscript/pkg/instruction"
)

// Program is a parsed script.
type Program struct {
	// Instructions is the executable sequence.
	Instructions []instruction.Instruction

	// Lines holds the 1-indexed source line of each instruction.
	// It is nil for programs that were not produced by Parse.
	Lines []int
}

// Len returns the number of instructions.
func (p Program) Len() int {
	return len(p.Instructions)
}

// LineOf returns the source line of the instruction at pc, or 0 if unknown.
func (p Program) LineOf(pc int) int {
	if pc < 0 || pc >= len(p.Lines) {
		return 0
	}
	return p.Lines[pc]
}

// parser は1回のParse呼び出しの状態を保持する
type parser struct {
	source   string
	program  Program
	warnings []*ParseWarning
	line     int
	text     string
}

// Parse parses source into a program. Unrecognized or malformed lines are
// reported as warnings and skipped.
func Parse(source string) (Program, []*ParseWarning) {
	p := &parser{source: source}
	for i, text := range strings.Split(source, "\n") {
		p.line = i + 1
		p.text = text
		p.parseLine(strings.TrimSpace(text))
	}
	return p.program, p.warnings
}

// MustParse parses source and panics if any line produced a warning.
// It is intended for tests and embedded scripts.
func MustParse(source string) Program {
	program, warnings := Parse(source)
	if len(warnings) > 0 {
		panic(warnings[0])
	}
	return program
}

func (p *parser) emit(ins instruction.Instruction) {
	p.program.Instructions = append(p.program.Instructions, ins)
	p.program.Lines = append(p.program.Lines, p.line)
}

func (p *parser) warn(message string) {
	p.warnings = append(p.warnings, newWarning(p.source, p.line, p.text, message))
}

func (p *parser) parseLine(line string) {
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	keyword, rest := splitWord(line)
	switch keyword {
	case "label":
		p.parseLabel(rest)
	case "say":
		p.parseSay(rest)
	case "jump":
		p.parseJump(rest)
	case "set":
		p.parseSet(rest)
	case "if":
		p.parseIf(rest)
	case "choice":
		p.parseChoice(rest)
	case "show":
		p.parseShow(rest)
	case "hide":
		p.parseHide(rest)
	case "bg":
		p.parseBg(rest)
	case "music":
		p.parseMusic(rest)
	case "sfx":
		p.parseSfx(rest)
	default:
		p.warn("unrecognized instruction " + strconv.Quote(keyword))
	}
}

func (p *parser) parseLabel(rest string) {
	if rest == "" {
		p.warn("label requires a name")
		return
	}
	p.emit(instruction.Label{Name: rest})
}

func (p *parser) parseSay(rest string) {
	if rest == "" {
		p.warn("say requires text")
		return
	}
	first, text := splitWord(rest)
	if len(first) > 1 && strings.HasSuffix(first, ":") {
		p.emit(instruction.Say{Speaker: strings.TrimSuffix(first, ":"), Text: text})
		return
	}
	p.emit(instruction.Say{Text: rest})
}

func (p *parser) parseJump(rest string) {
	if rest == "" {
		p.warn("jump requires a label")
		return
	}
	p.emit(instruction.JumpLabel{Target: rest})
}

// compoundOps は set の複合代入演算子
const compoundOps = "+-*/%"

// parseSet handles "set name = expr" and the compound forms "set name += expr",
// which are rewritten to "name + (expr)".
func (p *parser) parseSet(rest string) {
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		p.warn("set requires '='")
		return
	}
	name := strings.TrimSpace(rest[:eq])
	expression := strings.TrimSpace(rest[eq+1:])

	op := ""
	if n := len(name); n > 0 && strings.IndexByte(compoundOps, name[n-1]) >= 0 {
		op = name[n-1:]
		name = strings.TrimSpace(name[:n-1])
	}

	if !IsValidName(name) {
		p.warn("invalid variable name " + strconv.Quote(name))
		return
	}
	if expression == "" || strings.HasPrefix(expression, "=") {
		p.warn("set requires an expression after '='")
		return
	}
	if op != "" {
		expression = name + " " + op + " (" + expression + ")"
	}
	p.emit(instruction.SetVar{Name: name, Expression: expression})
}

// parseIf splits on the last " jump " so conditions may not contain the word.
func (p *parser) parseIf(rest string) {
	idx := strings.LastIndex(rest, " jump ")
	if idx < 0 {
		p.warn("if requires 'jump <label>'")
		return
	}
	condition := strings.TrimSpace(rest[:idx])
	target := strings.TrimSpace(rest[idx+len(" jump "):])
	if condition == "" {
		p.warn("if requires a condition")
		return
	}
	if target == "" {
		p.warn("if requires a label")
		return
	}
	p.emit(instruction.IfJump{Condition: condition, Target: target})
}

func (p *parser) parseChoice(rest string) {
	var options []instruction.ChoiceOption
	for _, part := range strings.Split(rest, "|") {
		text, target, ok := strings.Cut(part, "->")
		if !ok {
			p.warn("choice option without '->': " + strconv.Quote(strings.TrimSpace(part)))
			continue
		}
		target = strings.TrimSpace(target)
		if target == "" {
			p.warn("choice option without a label: " + strconv.Quote(strings.TrimSpace(part)))
			continue
		}
		options = append(options, instruction.ChoiceOption{
			Text:   strings.TrimSpace(text),
			Target: target,
		})
	}
	if len(options) == 0 {
		p.warn("choice has no valid options")
		return
	}
	p.emit(instruction.Choice{Options: options})
}

func (p *parser) parseShow(rest string) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		p.warn("show requires a name and an expression")
		return
	}

	show := instruction.ShowCharacter{Name: fields[0], Expression: fields[1]}
	for _, token := range fields[2:] {
		if preset, ok := instruction.ParsePreset(token); ok {
			show.Placement.Preset = preset
			continue
		}
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		var field **float64
		switch key {
		case "x":
			field = &show.Placement.X
		case "y":
			field = &show.Placement.Y
		case "scale":
			field = &show.Placement.Scale
		case "rot":
			field = &show.Placement.Rotation
		case "layer":
			field = &show.Placement.Layer
		default:
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			p.warn("invalid number for " + key + ": " + strconv.Quote(value))
			continue
		}
		*field = &f
	}
	p.emit(show)
}

func (p *parser) parseHide(rest string) {
	if rest == "" {
		p.warn("hide requires a name")
		return
	}
	p.emit(instruction.HideCharacter{Name: rest})
}

func (p *parser) parseBg(rest string) {
	switch {
	case strings.HasPrefix(rest, "image="):
		path := strings.TrimSpace(strings.TrimPrefix(rest, "image="))
		if path == "" {
			p.warn("bg image requires a path")
			return
		}
		p.emit(instruction.BgImage{Path: path})
	case strings.HasPrefix(rest, "color="):
		source := strings.TrimSpace(strings.TrimPrefix(rest, "color="))
		c, ok := ParseColor(source)
		if !ok {
			p.warn("invalid color " + strconv.Quote(source))
			return
		}
		p.emit(instruction.BgColor{Color: c, Source: source})
	default:
		p.warn("bg requires image=<path> or color=<color>")
	}
}

func (p *parser) parseMusic(rest string) {
	verb, path := splitWord(rest)
	switch {
	case verb == "play" && path != "":
		p.emit(instruction.MusicPlay{Path: path})
	case verb == "play":
		p.warn("music play requires a path")
	case verb == "stop" && path == "":
		p.emit(instruction.MusicStop{})
	default:
		p.warn("music requires 'play <path>' or 'stop'")
	}
}

func (p *parser) parseSfx(rest string) {
	verb, path := splitWord(rest)
	if verb != "play" || path == "" {
		p.warn("sfx requires 'play <path>'")
		return
	}
	p.emit(instruction.SfxPlay{Path: path})
}

// primaryColors は colornames より優先する基本色
var primaryColors = map[string]color.RGBA{
	"red":   {R: 255, A: 255},
	"green": {G: 255, A: 255},
	"blue":  {B: 255, A: 255},
}

// ParseColor parses a color name or a #RRGGBB literal.
// red, green and blue are the pure primaries; other names follow the SVG
// color keywords.
func ParseColor(s string) (color.RGBA, bool) {
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return color.RGBA{}, false
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return color.RGBA{}, false
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	}
	name := strings.ToLower(s)
	if c, ok := primaryColors[name]; ok {
		return c, true
	}
	if c, ok := colornames.Map[name]; ok {
		return c, true
	}
	return color.RGBA{}, false
}

// IsValidName reports whether s can be used as a variable name.
func IsValidName(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune("()+-*/%=<>", r) {
			return false
		}
	}
	switch s {
	case "and", "or", "not":
		return false
	}
	return true
}

// splitWord splits s into its first whitespace-separated word and the trimmed rest.
func splitWord(s string) (string, string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}
