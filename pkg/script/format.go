package script

import (
	"strings"

	"github.com/zurustar/vnscript/pkg/instruction"
)

// Format writes program back to script source, one instruction per line.
// Parsing the result yields the same instructions.
func Format(program Program) string {
	return FormatInstructions(program.Instructions)
}

// FormatInstructions writes instructions as script source.
func FormatInstructions(instructions []instruction.Instruction) string {
	var buf strings.Builder
	for _, ins := range instructions {
		buf.WriteString(ins.String())
		buf.WriteByte('\n')
	}
	return buf.String()
}
