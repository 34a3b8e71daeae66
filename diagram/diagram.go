// Package diagram reconstructs a SmartArt diagram's hierarchy from its raw
// point/connection graph. Presentation points (pure visual placement) drive
// icon ownership but never appear in the output tree; the returned nodes are
// the surviving structural roots after empty-node filtering.
package diagram

import (
	"log/slog"
	"strings"

	"github.com/brunobiangulo/godeck/deck"
	"github.com/brunobiangulo/godeck/pptx"
)

// MediaSink persists one media blob under the presentation's media directory
// and returns the relative path to reference it by.
type MediaSink interface {
	Save(name string, data []byte) (string, error)
}

// nodeState carries per-point fields that mutate before tree building (icon
// ownership reassignment).
type nodeState struct {
	text    string
	icon    string
	iconAlt string
}

// Resolve turns a dgm dataModel payload into an ordered sequence of root
// nodes. part resolves the data part's relationships (icon blobs); media
// persists them. A payload with no points yields (nil, nil): the caller
// simply omits the diagram block.
func Resolve(data []byte, part pptx.PartResolver, media MediaSink, logger *slog.Logger) ([]deck.DiagramNode, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g, err := parseGraph(data)
	if err != nil {
		return nil, err
	}
	if len(g.points) == 0 {
		return nil, nil
	}

	// Point order drives every later iteration so identical input yields an
	// identical tree.
	order := make([]string, 0, len(g.points))
	nodes := make(map[string]*nodeState, len(g.points))
	for _, pt := range g.points {
		if _, dup := nodes[pt.id]; dup {
			continue
		}
		order = append(order, pt.id)
		nodes[pt.id] = &nodeState{text: pt.text, iconAlt: pt.iconAlt}
		if pt.iconRID != "" {
			nodes[pt.id].icon = saveIcon(pt, part, media, logger)
		}
	}

	visualToData := make(map[string]string)
	visualParent := make(map[string]string)
	visualChildren := make(map[string][]string)
	presPoints := make(map[string]bool)

	for _, c := range g.conns {
		switch c.typ {
		case "presOf":
			visualToData[c.dst] = c.src
			presPoints[c.dst] = true
		case "presParOf":
			visualParent[c.dst] = c.src
			visualChildren[c.src] = append(visualChildren[c.src], c.dst)
			presPoints[c.src] = true
			presPoints[c.dst] = true
		}
	}
	// Explicit associations win over presOf edges.
	for _, pt := range g.points {
		if pt.assocID != "" {
			visualToData[pt.id] = pt.assocID
			presPoints[pt.id] = true
		}
	}

	reassignIcons(order, nodes, visualToData, visualParent, visualChildren, g.rootID)

	roots := buildTree(g, order, nodes, presPoints)
	roots = filterEmpty(roots)
	if len(roots) == 0 {
		return nil, nil
	}
	return roots, nil
}

func saveIcon(pt point, part pptx.PartResolver, media MediaSink, logger *slog.Logger) string {
	ref, err := part.Related(pt.iconRID)
	if err != nil {
		logger.Debug("diagram: icon relationship unresolved", "point", pt.id, "rid", pt.iconRID, "error", err)
		return ""
	}
	blob, err := ref.Blob()
	if err != nil {
		logger.Debug("diagram: reading icon blob", "point", pt.id, "error", err)
		return ""
	}
	name := "sa_" + sanitizeID(pt.id) + "." + extFromContentType(ref.ContentType())
	path, err := media.Save(name, blob)
	if err != nil {
		logger.Debug("diagram: persisting icon", "point", pt.id, "error", err)
		return ""
	}
	return path
}

// reassignIcons moves each icon from the presentation point it is attached to
// onto the data point it illustrates, when that owner has no icon of its own.
func reassignIcons(order []string, nodes map[string]*nodeState, v2d, vpar map[string]string, vchild map[string][]string, rootID string) {
	for _, id := range order {
		st := nodes[id]
		if st.icon == "" {
			continue
		}
		owner := findDataOwner(id, v2d, vpar, vchild, rootID)
		if owner == "" || owner == id {
			continue
		}
		if ow, ok := nodes[owner]; ok && ow.icon == "" {
			ow.icon = st.icon
			ow.iconAlt = st.iconAlt
			st.icon = ""
			st.iconAlt = ""
		}
	}
}

// findDataOwner walks from a point toward the presentation root looking for a
// resolvable, non-root data association: the point's own, then any sibling's
// under the same presentation parent, then the parent's. A revisited point
// terminates the walk with no owner.
func findDataOwner(start string, v2d, vpar map[string]string, vchild map[string][]string, rootID string) string {
	visited := make(map[string]bool)
	curr := start
	for curr != "" && !visited[curr] {
		visited[curr] = true
		if did, ok := v2d[curr]; ok && did != rootID {
			return did
		}
		parent := vpar[curr]
		if parent != "" {
			for _, sib := range vchild[parent] {
				if sib == curr {
					continue
				}
				if did, ok := v2d[sib]; ok && did != rootID {
					return did
				}
			}
		}
		curr = parent
	}
	return ""
}

// buildTree constructs the structural hierarchy from parOf edges between data
// points. Presentation points are never placed in the tree. A single
// organizational root (textless, iconless, with children) is collapsed into
// its children.
func buildTree(g *graph, order []string, nodes map[string]*nodeState, presPoints map[string]bool) []deck.DiagramNode {
	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	for _, c := range g.conns {
		if c.typ != "" && c.typ != "parOf" {
			continue
		}
		if nodes[c.src] == nil || nodes[c.dst] == nil {
			continue
		}
		if presPoints[c.src] || presPoints[c.dst] {
			continue
		}
		children[c.src] = append(children[c.src], c.dst)
		hasParent[c.dst] = true
	}

	var build func(id string, level int, path map[string]bool) deck.DiagramNode
	build = func(id string, level int, path map[string]bool) deck.DiagramNode {
		path[id] = true
		st := nodes[id]
		n := deck.DiagramNode{
			ID:      id,
			Text:    st.text,
			Level:   level,
			Icon:    st.icon,
			IconAlt: st.iconAlt,
		}
		for _, cid := range children[id] {
			if path[cid] {
				// cycle in parOf edges; drop the back edge
				continue
			}
			n.Children = append(n.Children, build(cid, level+1, path))
		}
		delete(path, id)
		return n
	}

	var roots []deck.DiagramNode
	for _, id := range order {
		if hasParent[id] || presPoints[id] {
			continue
		}
		roots = append(roots, build(id, 0, make(map[string]bool)))
	}

	if len(roots) == 1 {
		r := roots[0]
		if strings.TrimSpace(r.Text) == "" && r.Icon == "" && len(r.Children) > 0 {
			roots = r.Children
		}
	}
	return roots
}

// filterEmpty drops, bottom-up, every node left with no text, no icon and no
// surviving children. Running it on an already-filtered tree is a no-op.
func filterEmpty(nodes []deck.DiagramNode) []deck.DiagramNode {
	var out []deck.DiagramNode
	for _, n := range nodes {
		n.Children = filterEmpty(n.Children)
		if strings.TrimSpace(n.Text) != "" || n.Icon != "" || len(n.Children) > 0 {
			out = append(out, n)
		}
	}
	return out
}

// sanitizeID strips the characters a modelId GUID carries that make for ugly
// filenames.
func sanitizeID(id string) string {
	r := strings.NewReplacer("{", "", "}", "", "-", "")
	return r.Replace(id)
}

// extFromContentType derives a file extension from an image content type:
// "image/x-emf" becomes "emf", "image/svg+xml" becomes "svg".
func extFromContentType(ct string) string {
	if i := strings.LastIndex(ct, "/"); i >= 0 {
		ct = ct[i+1:]
	}
	ct = strings.TrimPrefix(ct, "x-")
	ct = strings.TrimSuffix(ct, "+xml")
	if ct == "" {
		return "png"
	}
	return ct
}
