package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour,
// picking a light or dark style from the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// SceneReport builds the markdown summary printed by `tableau inspect`.
func SceneReport(snap domain.Snapshot, st domain.PlaybackState, controls []domain.ControlState) string {
	var sb strings.Builder
	sb.WriteString("# Scene\n\n")
	fmt.Fprintf(&sb, "Sequence **%d**, %d nodes.\n\n", snap.Seq, len(snap.Nodes))

	counts := map[domain.NodeType]int{}
	for _, n := range snap.Nodes {
		counts[n.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	sb.WriteString("| Type | Nodes |\n|---|---|\n")
	for _, t := range types {
		fmt.Fprintf(&sb, "| %s | %d |\n", t, counts[domain.NodeType(t)])
	}

	sb.WriteString("\n# Playback\n\n")
	fmt.Fprintf(&sb, "- Frame: %d / %d\n", st.CurrentIndex, st.NumFrames)
	fmt.Fprintf(&sb, "- Playing: %t\n", st.Playing)
	fmt.Fprintf(&sb, "- FPS: %.1f\n", st.FPS)

	sb.WriteString("\n# Controls\n\n| Label | Kind | Value | Disabled |\n|---|---|---|---|\n")
	for _, c := range controls {
		value := "-"
		if c.Value != nil {
			value = fmt.Sprint(c.Value)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %t |\n", c.Label, c.Kind, value, c.Disabled)
	}
	return sb.String()
}
