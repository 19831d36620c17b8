package report

import (
	"fmt"
	"strings"

	"github.com/nao1215/nodescan/internal/model"
)

// Block is the report entry of one node.
type Block struct {
	BaseURL       string
	Accessibility []string
	Broken        []string

	// IncludeAccessibility and IncludeBroken select the sub-blocks written.
	IncludeAccessibility bool
	IncludeBroken        bool
}

// NewBlock builds the block of outcome for mode.
func NewBlock(outcome model.NodeOutcome, mode model.FilterMode) Block {
	return Block{
		BaseURL:              outcome.BaseURL,
		Accessibility:        outcome.Accessibility(),
		Broken:               outcome.Broken(),
		IncludeAccessibility: mode.IncludesAccessibility(),
		IncludeBroken:        mode.IncludesBroken(),
	}
}

// String renders the block followed by a blank line.
func (b Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "base_url: %s\n", b.BaseURL)
	if b.IncludeAccessibility {
		writeList(&sb, "acc_problem", b.Accessibility)
	}
	if b.IncludeBroken {
		writeList(&sb, "broken_urls", b.Broken)
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeList(sb *strings.Builder, name string, urls []string) {
	fmt.Fprintf(sb, "    %s:\n", name)
	for i, u := range urls {
		fmt.Fprintf(sb, "        %d. %s\n", i+1, u)
	}
}
