// Package visualize renders the pipeline and module structure of an engine.
package visualize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// Format represents the output format for pipeline visualization.
type Format string

const (
	FormatText    Format = "text"
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
	FormatJSON    Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatMermaid, FormatDOT, FormatJSON}

// Node is one module in the tree. Path matches the module path used in
// errors and logs.
type Node struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Pipeline describes one pipeline in execution order.
type Pipeline struct {
	Name        string   `json:"name"`
	DependsOn   []string `json:"depends_on,omitempty"`
	ProcessOnce bool     `json:"process_once,omitempty"`
	Modules     []Node   `json:"modules"`
}

// Describe returns the engine's pipelines in execution order.
func Describe(e *engine.Engine) ([]Pipeline, error) {
	ordered, err := e.ExecutionOrder()
	if err != nil {
		return nil, err
	}
	out := make([]Pipeline, 0, len(ordered))
	for _, p := range ordered {
		out = append(out, Pipeline{
			Name:        p.Name,
			DependsOn:   p.DependsOn,
			ProcessOnce: p.ProcessOnce,
			Modules:     nodes(p.Name, "", p.Modules),
		})
	}
	return out, nil
}

func nodes(base, label string, modules []engine.Module) []Node {
	out := make([]Node, 0, len(modules))
	for i, m := range modules {
		path := base + "/" + strconv.Itoa(i)
		n := Node{Path: path, Name: engine.ModuleName(m), Label: label}
		for _, chain := range engine.ChildChains(m) {
			childBase := path
			if chain.Label != "" {
				childBase += "/" + chain.Label
			}
			n.Children = append(n.Children, nodes(childBase, chain.Label, chain.Modules)...)
		}
		out = append(out, n)
	}
	return out
}

// Render formats pipelines.
func Render(format Format, pipelines []Pipeline) (string, error) {
	switch format {
	case FormatText, "":
		return renderText(pipelines), nil
	case FormatMermaid:
		return renderMermaid(pipelines), nil
	case FormatDOT:
		return renderDOT(pipelines), nil
	case FormatJSON:
		b, err := json.MarshalIndent(pipelines, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func renderText(pipelines []Pipeline) string {
	var sb strings.Builder
	total := 0
	for i, p := range pipelines {
		fmt.Fprintf(&sb, "┌─ Pipeline %d: %s", i+1, p.Name)
		if len(p.DependsOn) > 0 {
			fmt.Fprintf(&sb, " (depends on: %s)", strings.Join(p.DependsOn, ", "))
		}
		if p.ProcessOnce {
			sb.WriteString(" [process once]")
		}
		sb.WriteString("\n")
		total += writeTextNodes(&sb, p.Modules, "│ ")
		sb.WriteString("│\n")
	}
	fmt.Fprintf(&sb, "\nTotal: %d modules across %d pipelines\n", total, len(pipelines))
	return sb.String()
}

func writeTextNodes(sb *strings.Builder, nodes []Node, indent string) int {
	count := 0
	for j, n := range nodes {
		last := j == len(nodes)-1
		prefix, next := "├── ", "│   "
		if last {
			prefix, next = "└── ", "    "
		}
		label := ""
		if n.Label != "" {
			label = " <" + n.Label + ">"
		}
		fmt.Fprintf(sb, "%s%s[%s]%s %s\n", indent, prefix, n.Name, label, n.Path)
		count += 1 + writeTextNodes(sb, n.Children, indent+next)
	}
	return count
}

func renderMermaid(pipelines []Pipeline) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")
	for _, p := range pipelines {
		fmt.Fprintf(&sb, "    subgraph %s[\"Pipeline: %s\"]\n", nodeID(p.Name), p.Name)
		writeMermaidNodes(&sb, p.Modules, "        ")
		writeChainEdges(&sb, p.Modules, "        ")
		sb.WriteString("    end\n")
	}
	sb.WriteString("\n")
	for _, p := range pipelines {
		for _, dep := range p.DependsOn {
			fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(dep), nodeID(p.Name))
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func writeMermaidNodes(sb *strings.Builder, nodes []Node, indent string) {
	for _, n := range nodes {
		fmt.Fprintf(sb, "%s%s[\"%s\"]\n", indent, nodeID(n.Path), n.Name)
		writeMermaidNodes(sb, n.Children, indent)
	}
}

// writeChainEdges links consecutive siblings and each parent to the first
// module of every child chain.
func writeChainEdges(sb *strings.Builder, nodes []Node, indent string) {
	for i, n := range nodes {
		if i > 0 {
			fmt.Fprintf(sb, "%s%s --> %s\n", indent, nodeID(nodes[i-1].Path), nodeID(n.Path))
		}
		var chain []Node
		flush := func() {
			if len(chain) == 0 {
				return
			}
			arrow := "-->"
			if chain[0].Label != "" {
				arrow = "-.->|" + chain[0].Label + "|"
			}
			fmt.Fprintf(sb, "%s%s %s %s\n", indent, nodeID(n.Path), arrow, nodeID(chain[0].Path))
			writeChainEdges(sb, chain, indent)
			chain = nil
		}
		for _, c := range n.Children {
			if len(chain) > 0 && chain[0].Label != c.Label {
				flush()
			}
			chain = append(chain, c)
		}
		flush()
	}
}

func renderDOT(pipelines []Pipeline) string {
	var sb strings.Builder
	sb.WriteString("digraph Pipelines {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")
	for i, p := range pipelines {
		fmt.Fprintf(&sb, "    subgraph cluster_%d {\n", i)
		fmt.Fprintf(&sb, "        label=%q;\n", "Pipeline: "+p.Name)
		var walk func([]Node)
		walk = func(nodes []Node) {
			for j, n := range nodes {
				fmt.Fprintf(&sb, "        %q [label=%q];\n", n.Path, n.Name)
				if j > 0 {
					fmt.Fprintf(&sb, "        %q -> %q;\n", nodes[j-1].Path, n.Path)
				}
				walk(n.Children)
			}
		}
		walk(p.Modules)
		sb.WriteString("    }\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// nodeID sanitizes a path for use as a Mermaid node identifier.
func nodeID(s string) string {
	return strings.NewReplacer("/", "_", "-", "_", " ", "_", ".", "_").Replace(s)
}
