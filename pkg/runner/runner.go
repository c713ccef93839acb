// Package runner executes instruction sequences.
//
// A Runner is a single-threaded, tick-driven state machine. The host calls
// Step once per frame; each Step performs at most one instruction with an
// effect outside the runner, while labels and jumps cascade within the same
// tick. Say and Choice suspend the runner until the host calls Advance or
// SelectChoice. Runner methods must be called from one goroutine.
package runner

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/zurustar/vnscript/pkg/expr"
	"github.com/zurustar/vnscript/pkg/instruction"
	"github.com/zurustar/vnscript/pkg/logger"
	"github.com/zurustar/vnscript/pkg/script"
	"github.com/zurustar/vnscript/pkg/vars"
)

// DefaultMaxCascade is the default number of control-flow instructions a
// single Step may run before yielding to the host.
const DefaultMaxCascade = 10000

// State is the externally visible state of a Runner.
type State int

const (
	// StateRunning means the next Step will execute an instruction.
	StateRunning State = iota
	// StateAwaitingAdvance means a Say is waiting for Advance.
	StateAwaitingAdvance
	// StateAwaitingChoice means a Choice is waiting for SelectChoice.
	StateAwaitingChoice
	// StateFinished means the instruction pointer is past the end.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAwaitingAdvance:
		return "awaiting-advance"
	case StateAwaitingChoice:
		return "awaiting-choice"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Runner holds a program, its label table, the instruction pointer and the
// suspension flag.
type Runner struct {
	name      string
	program   script.Program
	labels    map[string]int
	pc        int
	suspended bool

	// generation は外部からの状態変更ごとに増える
	// Step はディスパッチ中に値が変わったら即座に戻る
	generation uint64
	// jumped はディスパッチ中にジャンプが成功したことを示す
	jumped bool

	vars       *vars.Store
	dialogue   Dialogue
	scene      Scene
	audio      Audio
	maxCascade int
	log        *slog.Logger
}

// Option is a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithDialogue sets the collaborator that displays lines and choices.
func WithDialogue(d Dialogue) Option {
	return func(r *Runner) {
		r.dialogue = d
	}
}

// WithScene sets the collaborator that draws backgrounds and characters.
func WithScene(s Scene) Option {
	return func(r *Runner) {
		r.scene = s
	}
}

// WithAudio sets the collaborator that plays music and sound effects.
func WithAudio(a Audio) Option {
	return func(r *Runner) {
		r.audio = a
	}
}

// WithVars sets the variable store. The runner mutates it in place.
func WithVars(store *vars.Store) Option {
	return func(r *Runner) {
		r.vars = store
	}
}

// WithMaxCascade limits the control-flow instructions run by one Step.
// Values below 1 are ignored.
func WithMaxCascade(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxCascade = n
		}
	}
}

// New Runnerを作成
// The runner starts with an empty program and is finished until Load is called.
func New(opts ...Option) *Runner {
	r := &Runner{
		labels:     make(map[string]int),
		vars:       vars.NewStore(),
		dialogue:   nop{},
		scene:      nop{},
		audio:      nop{},
		maxCascade: DefaultMaxCascade,
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the program, rebuilds the label table, resets the
// instruction pointer to 0 and clears suspension. It may be called at any
// time, including from a collaborator during Step; no instruction of the
// previous program runs afterwards.
func (r *Runner) Load(instructions []instruction.Instruction) {
	r.LoadProgram("", script.Program{Instructions: instructions})
}

// LoadProgram is Load with a script name and source lines for logging.
func (r *Runner) LoadProgram(name string, program script.Program) {
	r.name = name
	r.program = script.Program{
		Instructions: slices.Clone(program.Instructions),
		Lines:        slices.Clone(program.Lines),
	}
	r.rebuildLabels()
	r.pc = 0
	r.suspended = false
	r.generation++
	r.log.Info("Script loaded", "script", name, "instructions", len(r.program.Instructions), "labels", len(r.labels))
}

// LoadSource parses source and loads the result. Parse warnings are logged
// and returned; skipped lines do not prevent loading.
func (r *Runner) LoadSource(name, source string) []*script.ParseWarning {
	program, warnings := script.Parse(source)
	script.LogWarnings(r.log, name, warnings)
	r.LoadProgram(name, program)
	return warnings
}

// LoadFile reads, parses and loads the named script. If the file cannot be
// read the previous program stays loaded and a SCRIPT_LOAD_FAILED error is
// returned.
func (r *Runner) LoadFile(loader *script.Loader, name string) ([]*script.ParseWarning, error) {
	source, err := loader.Load(name)
	if err != nil {
		rerr := NewScriptLoadError(name, err)
		r.log.Error("Script load failed, keeping current script", "script", name, "current", r.name, "error", err)
		return nil, rerr
	}
	return r.LoadSource(name, source), nil
}

// rebuildLabels はラベル表を再構築する（同名ラベルは後勝ち）
func (r *Runner) rebuildLabels() {
	r.labels = make(map[string]int)
	for pc, ins := range r.program.Instructions {
		label, ok := ins.(instruction.Label)
		if !ok {
			continue
		}
		if prev, dup := r.labels[label.Name]; dup {
			r.log.Warn("Duplicate label, later definition wins",
				"script", r.name,
				"label", label.Name,
				"first_pc", prev,
				"pc", pc,
				"line", r.program.LineOf(pc))
		}
		r.labels[label.Name] = pc
	}
}

// Restart moves the instruction pointer back to the first instruction and
// clears suspension. Variables are kept.
func (r *Runner) Restart() {
	r.pc = 0
	r.suspended = false
	r.generation++
}

// Step runs one tick. It does nothing while suspended or finished.
func (r *Runner) Step() {
	gen := r.generation
	for cascade := 0; ; cascade++ {
		if r.suspended || r.pc >= len(r.program.Instructions) {
			return
		}
		if cascade >= r.maxCascade {
			r.log.Warn("Control flow cascade limit reached, continuing next tick",
				"script", r.name,
				"pc", r.pc,
				"limit", r.maxCascade)
			return
		}

		ins := r.program.Instructions[r.pc]
		r.log.Debug("Executing instruction",
			"pc", r.pc,
			"line", r.program.LineOf(r.pc),
			"op", ins.Cmd())

		r.jumped = false
		ins.Accept(executor{r})
		if r.generation != gen {
			// コラボレーターが Load/Advance などを呼んだ
			return
		}
		if !r.jumped && !r.suspended {
			r.pc++
		}
		if !instruction.IsControlFlow(ins) {
			return
		}
	}
}

// Advance resumes after a Say. It is a no-op unless the runner is waiting
// on a Say; a pending Choice must be resolved with SelectChoice.
func (r *Runner) Advance() {
	switch r.State() {
	case StateAwaitingAdvance:
		r.suspended = false
		r.pc++
		r.generation++
	case StateAwaitingChoice:
		r.log.Debug("Advance ignored while a choice is pending", "pc", r.pc)
	}
}

// SelectChoice resolves the pending Choice with the option at index and
// jumps to its label. An index out of range leaves the runner suspended.
// If the option's label does not exist the choice is skipped.
func (r *Runner) SelectChoice(index int) error {
	choice, ok := r.pendingChoice()
	if !ok {
		return NewNotAwaitingChoiceError()
	}
	if index < 0 || index >= len(choice.Options) {
		err := NewChoiceOutOfRangeError(index, len(choice.Options))
		r.log.Warn("Choice out of range", "index", index, "options", len(choice.Options))
		return err
	}

	option := choice.Options[index]
	r.log.Info("Choice selected", "index", index, "text", option.Text, "target", option.Target)
	if err := r.JumpTo(option.Target); err != nil {
		r.suspended = false
		r.pc++
		r.generation++
		return err
	}
	return nil
}

// JumpTo moves the instruction pointer to label and clears suspension.
// If label does not exist nothing changes and a LABEL_NOT_FOUND error is
// returned.
func (r *Runner) JumpTo(label string) error {
	target, ok := r.labels[label]
	if !ok {
		err := NewLabelNotFoundError(label, r.pc, r.program.LineOf(r.pc))
		r.log.Warn("Label not found", "script", r.name, "label", label, "pc", r.pc, "line", err.Line)
		return err
	}
	r.pc = target
	r.suspended = false
	r.generation++
	return nil
}

// jump はディスパッチ中のジャンプ（見つからなければ何もしない）
func (r *Runner) jump(label string) {
	target, ok := r.labels[label]
	if !ok {
		err := NewLabelNotFoundError(label, r.pc, r.program.LineOf(r.pc))
		r.log.Warn("Label not found, skipping jump", "script", r.name, "label", label, "pc", r.pc, "line", err.Line)
		return
	}
	r.pc = target
	r.suspended = false
	r.jumped = true
}

func (r *Runner) pendingChoice() (instruction.Choice, bool) {
	if !r.suspended || r.pc >= len(r.program.Instructions) {
		return instruction.Choice{}, false
	}
	choice, ok := r.program.Instructions[r.pc].(instruction.Choice)
	return choice, ok
}

// State returns the current state.
func (r *Runner) State() State {
	switch {
	case r.pc >= len(r.program.Instructions):
		return StateFinished
	case !r.suspended:
		return StateRunning
	}
	if _, ok := r.pendingChoice(); ok {
		return StateAwaitingChoice
	}
	return StateAwaitingAdvance
}

// PC returns the instruction pointer.
func (r *Runner) PC() int {
	return r.pc
}

// Suspended reports whether the runner waits for Advance or SelectChoice.
func (r *Runner) Suspended() bool {
	return r.suspended
}

// Finished reports whether the program is exhausted.
func (r *Runner) Finished() bool {
	return r.pc >= len(r.program.Instructions)
}

// PendingChoices returns the options of the pending Choice, or nil.
func (r *Runner) PendingChoices() []instruction.ChoiceOption {
	choice, ok := r.pendingChoice()
	if !ok {
		return nil
	}
	return slices.Clone(choice.Options)
}

// Labels returns a copy of the label table.
func (r *Runner) Labels() map[string]int {
	return maps.Clone(r.labels)
}

// Vars returns the variable store.
func (r *Runner) Vars() *vars.Store {
	return r.vars
}

// Name returns the name of the loaded script.
func (r *Runner) Name() string {
	return r.name
}

// Len returns the number of loaded instructions.
func (r *Runner) Len() int {
	return len(r.program.Instructions)
}

// Line returns the source line of the current instruction, or 0 if unknown.
func (r *Runner) Line() int {
	return r.program.LineOf(r.pc)
}

// executor は命令ごとの処理を行う
type executor struct {
	r *Runner
}

func (x executor) VisitSay(i instruction.Say) {
	x.r.suspended = true
	x.r.dialogue.DisplayLine(i.Speaker, i.Text)
}

func (x executor) VisitLabel(instruction.Label) {}

func (x executor) VisitJumpLabel(i instruction.JumpLabel) {
	x.r.jump(i.Target)
}

// VisitSetVar stores the result as a float regardless of the previous type.
func (x executor) VisitSetVar(i instruction.SetVar) {
	value := expr.Evaluate(i.Expression, x.r.vars)
	x.r.vars.Set(i.Name, vars.Float(value))
	x.r.log.Debug("Variable set", "name", i.Name, "value", value)
}

func (x executor) VisitIfJump(i instruction.IfJump) {
	if expr.Evaluate(i.Condition, x.r.vars) != 0 {
		x.r.jump(i.Target)
	}
}

func (x executor) VisitChoice(i instruction.Choice) {
	x.r.suspended = true
	x.r.dialogue.DisplayChoices(slices.Clone(i.Options))
}

func (x executor) VisitShowCharacter(i instruction.ShowCharacter) {
	x.r.scene.ShowCharacter(i.Name, i.Expression, i.Placement.Resolve())
}

func (x executor) VisitHideCharacter(i instruction.HideCharacter) {
	x.r.scene.HideCharacter(i.Name)
}

func (x executor) VisitBgImage(i instruction.BgImage) {
	x.r.scene.SetBackgroundImage(i.Path)
}

func (x executor) VisitBgColor(i instruction.BgColor) {
	x.r.scene.SetBackgroundColor(i.Color)
}

func (x executor) VisitMusicPlay(i instruction.MusicPlay) {
	x.r.audio.PlayMusic(i.Path)
}

func (x executor) VisitMusicStop(instruction.MusicStop) {
	x.r.audio.StopMusic()
}

func (x executor) VisitSfxPlay(i instruction.SfxPlay) {
	x.r.audio.PlaySfx(i.Path)
}
