package pipeline

import "github.com/nao1215/nodescan/internal/model"

// Action is what happens to the outcome of an existing node.
type Action int

const (
	// ActionSkip drops the outcome.
	ActionSkip Action = iota

	// ActionStream hands the outcome to the observer.
	ActionStream

	// ActionWrite appends the outcome to the report file.
	ActionWrite
)

// Decide applies the filter mode to an outcome:
//
//	all            always streamed
//	accessibility  written when there are accessibility issues and no broken links
//	broken         written when there are broken links and no accessibility issues
//	both           written when there is any issue
func Decide(mode model.FilterMode, outcome model.NodeOutcome) Action {
	acc := len(outcome.Accessibility()) > 0
	broken := len(outcome.Broken()) > 0

	switch mode {
	case model.ModeAll:
		return ActionStream
	case model.ModeAccessibilityOnly:
		if acc && !broken {
			return ActionWrite
		}
	case model.ModeBrokenOnly:
		if broken && !acc {
			return ActionWrite
		}
	case model.ModeBoth:
		if acc || broken {
			return ActionWrite
		}
	}
	return ActionSkip
}
