package script

import (
	"sort"
	"strconv"
	"strings"

	"github.com/zurustar/vnscript/pkg/expr"
	"github.com/zurustar/vnscript/pkg/instruction"
)

// Validate checks source for problems an author would want to fix before
// running it: lines the parser skipped, jumps to labels that do not exist,
// labels defined more than once and malformed expressions.
// It returns the issues ordered by line. The runner never calls it.
func Validate(source string) []*ParseWarning {
	program, issues := Parse(source)

	labels := make(map[string]int)
	for pc, ins := range program.Instructions {
		label, ok := ins.(instruction.Label)
		if !ok {
			continue
		}
		if first, dup := labels[label.Name]; dup {
			issues = append(issues, issueAt(source, program.LineOf(pc),
				"duplicate label "+strconv.Quote(label.Name)+" (first defined at line "+strconv.Itoa(first)+")"))
			continue
		}
		labels[label.Name] = program.LineOf(pc)
	}

	for pc, ins := range program.Instructions {
		line := program.LineOf(pc)
		for _, target := range instruction.Targets(ins) {
			if _, ok := labels[target]; !ok {
				issues = append(issues, issueAt(source, line, "label not found: "+strconv.Quote(target)))
			}
		}

		var expression string
		switch i := ins.(type) {
		case instruction.SetVar:
			expression = i.Expression
		case instruction.IfJump:
			expression = i.Condition
		default:
			continue
		}
		if err := expr.Check(expression); err != nil {
			issues = append(issues, issueAt(source, line, "invalid expression "+strconv.Quote(expression)+": "+err.Error()))
		}
	}

	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Line < issues[b].Line
	})
	return issues
}

func issueAt(source string, line int, message string) *ParseWarning {
	text := ""
	lines := strings.Split(source, "\n")
	if line > 0 && line <= len(lines) {
		text = lines[line-1]
	}
	return newWarning(source, line, text, message)
}
