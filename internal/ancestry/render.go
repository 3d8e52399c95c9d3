package ancestry

import (
	"encoding/json"
	"fmt"
	"strings"

	"satwatch/internal/saturation"
)

// Link is one iteration in an ancestry chain.
type Link struct {
	Iteration       int      `json:"iteration"`
	Role            string   `json:"role,omitempty"`
	Fact            string   `json:"fact,omitempty"`
	Query           string   `json:"query"`
	InQueue         int      `json:"in_queue"`
	NewQueueEntries []string `json:"new_queue_entries"`
}

func newLink(it saturation.Iteration) Link {
	role, fact, _ := it.Selection()
	entries := it.NewQueueEntries
	if entries == nil {
		entries = []string{}
	}
	return Link{
		Iteration:       it.Progress.Iteration,
		Role:            role,
		Fact:            fact,
		Query:           it.Query,
		InQueue:         it.Progress.InQueue,
		NewQueueEntries: entries,
	}
}

// Explanation is the ancestry of one iteration, newest link first.
// Links[0] is the target iteration itself.
type Explanation struct {
	Target int    `json:"target"`
	Links  []Link `json:"links"`
}

// Indexes returns the iteration indexes of the chain, newest first.
func (e *Explanation) Indexes() []int {
	out := make([]int, len(e.Links))
	for i, l := range e.Links {
		out[i] = l.Iteration
	}
	return out
}

// RenderASCII renders the chain as a tree where each ancestor hangs below the
// iteration it fed.
func (e *Explanation) RenderASCII() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Ancestry of iteration %d\n", e.Target))
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	prefix := ""
	for _, l := range e.Links {
		sb.WriteString(prefix + "└── " + l.headline() + "\n")
		prefix += "    "
		sb.WriteString(fmt.Sprintf("%squery: %s\n", prefix, l.Query))
		if len(l.NewQueueEntries) > 0 {
			sb.WriteString(fmt.Sprintf("%squeued: %s\n", prefix, strings.Join(l.NewQueueEntries, " | ")))
		}
	}

	return sb.String()
}

func (l Link) headline() string {
	if l.Role == "" {
		return fmt.Sprintf("#%d [%dq]", l.Iteration, l.InQueue)
	}
	return fmt.Sprintf("#%d %s: %s [%dq]", l.Iteration, l.Role, l.Fact, l.InQueue)
}

// RenderJSON renders the explanation as indented JSON.
func (e *Explanation) RenderJSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}
