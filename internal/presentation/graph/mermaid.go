package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tableau/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Current is the path of the visible frame subtree root.
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of a scene snapshot, one edge
// per parent/child pair. It applies semantic styling:
// - Frame: ((Circle))
// - Point cloud: [(Cylinder)]
// - Camera frustum: [/Trapezoid\]
// - Image: [[Subroutine]]
// - Default: [Rectangle]
// Hidden nodes are drawn dashed; the overlay highlights the current frame.
func GenerateMermaid(nodes []domain.Node, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var hidden []string
	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.Path)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeFrame:
			opener, closer = "((", "))"
		case domain.NodeTypePointCloud:
			opener, closer = "[(", ")]"
		case domain.NodeTypeCameraFrustum:
			opener, closer = "[/", "\\]"
		case domain.NodeTypeImage:
			opener, closer = "[[", "]]"
		}

		label := node.Path[strings.LastIndex(node.Path, "/")+1:]
		if cloud, ok := node.Payload.(domain.PointCloudPayload); ok {
			label = fmt.Sprintf("%s <br/> %d pts", label, len(cloud.Points))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if parent := domain.ParentPath(node.Path); parent != domain.RootPath {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(parent), safeID))
		}
		if !node.Visible {
			hidden = append(hidden, safeID)
		}
	}

	if len(hidden) > 0 || overlay != nil {
		sb.WriteString("\n    %% Visibility Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef hidden fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 3,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range hidden {
			sb.WriteString(fmt.Sprintf("    class %s hidden;\n", id))
		}
		if overlay != nil && overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.TrimPrefix(id, "/")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "n_" + s
}
