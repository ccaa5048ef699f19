// Package graph renders the runtime node graph as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/host"
	"github.com/aretw0/tether/pkg/nodemap"
)

// Overlay marks nodes for highlighting.
type Overlay struct {
	// Roots are the active output roots.
	Roots []uint64
}

// GenerateMermaid produces Mermaid flowchart text for nodes. Edges point from a
// node to its children, so the signal flows bottom-up toward the roots.
// Shapes follow the node role:
//   - root: ((circle))
//   - hydrated and not yet re-rendered: [/parallelogram/]
//   - input: [[subroutine]]
//   - default: [rectangle]
func GenerateMermaid(nodes []host.NodeInfo, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph BT\n")

	roots := map[string]bool{}
	if overlay != nil {
		for _, r := range overlay.Roots {
			roots[nodemap.FormatKey(r)] = true
		}
	}

	for _, n := range nodes {
		id := mermaidID(n.Hash)
		opener, closer := "[", "]"
		switch {
		case roots[n.Hash]:
			opener, closer = "((", "))"
		case n.Kind == domain.KindHydrated:
			opener, closer = "[/", "/]"
		case n.Kind == "in":
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", id, opener, label(n.Kind), n.Hash, closer)

		for _, c := range n.Children {
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(c), id)
		}
	}

	if len(roots) > 0 {
		sb.WriteString("\n    classDef root fill:#ffeb3b,stroke:#fbc02d,stroke-width:3px,color:#000;\n")
		for _, n := range nodes {
			if roots[n.Hash] {
				fmt.Fprintf(&sb, "    class %s root;\n", mermaidID(n.Hash))
			}
		}
	}
	return sb.String()
}

func mermaidID(hash string) string {
	return "n" + hash
}

func label(kind string) string {
	if kind == domain.KindHydrated {
		return "hydrated"
	}
	return strings.ReplaceAll(kind, "\"", "'")
}
