package runner

import (
	"image/color"

	"github.com/zurustar/vnscript/pkg/instruction"
)

// Dialogue receives text and choices to present to the player.
// Calls are one-way; the runner never waits on a return value.
type Dialogue interface {
	// DisplayLine shows a line of dialogue. speaker is empty for narration.
	DisplayLine(speaker, text string)
	// DisplayChoices shows the options of a pending choice. The player's
	// answer comes back through Runner.SelectChoice.
	DisplayChoices(options []instruction.ChoiceOption)
}

// Scene receives background and character commands.
type Scene interface {
	SetBackgroundImage(path string)
	SetBackgroundColor(c color.RGBA)
	ShowCharacter(name, expression string, t instruction.Transform)
	HideCharacter(name string)
}

// Audio receives music and sound effect commands.
type Audio interface {
	PlayMusic(path string)
	StopMusic()
	PlaySfx(path string)
}

// MultiAudio forwards every command to each of its members in order.
type MultiAudio []Audio

func (m MultiAudio) PlayMusic(path string) {
	for _, a := range m {
		a.PlayMusic(path)
	}
}

func (m MultiAudio) StopMusic() {
	for _, a := range m {
		a.StopMusic()
	}
}

func (m MultiAudio) PlaySfx(path string) {
	for _, a := range m {
		a.PlaySfx(path)
	}
}

// nop は何もしないコラボレーター
type nop struct{}

func (nop) DisplayLine(string, string)                          {}
func (nop) DisplayChoices([]instruction.ChoiceOption)           {}
func (nop) SetBackgroundImage(string)                           {}
func (nop) SetBackgroundColor(color.RGBA)                       {}
func (nop) ShowCharacter(string, string, instruction.Transform) {}
func (nop) HideCharacter(string)                                {}
func (nop) PlayMusic(string)                                    {}
func (nop) StopMusic()                                          {}
func (nop) PlaySfx(string)                                      {}
