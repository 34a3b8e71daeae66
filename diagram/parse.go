package diagram

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nsDgm = "http://schemas.openxmlformats.org/drawingml/2006/diagram"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// point is one raw node of the diagram data model.
type point struct {
	id      string
	typ     string // "doc" marks the data root
	assocID string // explicit presentation→data association
	text    string
	iconRID string
	iconAlt string
}

// connection is one typed edge. An absent type attribute means "parOf", the
// structural default.
type connection struct {
	src, dst, typ string
}

// graph is the parsed point/connection model, in document order.
type graph struct {
	points []point
	conns  []connection
	rootID string
}

// parseGraph streams through a dgm dataModel payload collecting points and
// connections. Point text lives in a:p paragraphs under either dgm:t
// (preferred) or a txBody fallback; icons are the first a:blip embed under
// the point; icon alt text comes from cNvPr descr or title.
func parseGraph(data []byte) (*graph, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	g := &graph{}

	var (
		cur      *point
		ptDepth  int
		textDst  *[]string // paragraph lines of the active text container
		primary  []string
		fallback []string
		line     strings.Builder
		inPara   bool
		inRunTxt bool
	)

	flushPoint := func() {
		cur.text = strings.Join(primary, "\n")
		if cur.text == "" {
			cur.text = strings.Join(fallback, "\n")
		}
		g.points = append(g.points, *cur)
		if cur.typ == "doc" && g.rootID == "" {
			g.rootID = cur.id
		}
		cur = nil
		primary, fallback = nil, nil
		textDst = nil
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("diagram: parsing data model: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur != nil {
				ptDepth++
			}
			switch {
			case t.Name.Local == "pt" && t.Name.Space == nsDgm:
				if cur != nil {
					// malformed nesting; close the open point first
					flushPoint()
				}
				cur = &point{}
				ptDepth = 1
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "modelId":
						cur.id = a.Value
					case "type":
						cur.typ = a.Value
					}
				}
			case t.Name.Local == "cxn" && t.Name.Space == nsDgm:
				var c connection
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "srcId":
						c.src = a.Value
					case "destId":
						c.dst = a.Value
					case "type":
						c.typ = a.Value
					}
				}
				g.conns = append(g.conns, c)
			case cur == nil:
				// outside a point, nothing else to collect
			case t.Name.Local == "prSet":
				for _, a := range t.Attr {
					if a.Name.Local == "presAssocID" {
						cur.assocID = a.Value
					}
				}
			case t.Name.Local == "t" && t.Name.Space == nsDgm:
				textDst = &primary
			case t.Name.Local == "txBody":
				textDst = &fallback
			case t.Name.Local == "p" && t.Name.Space == nsA && textDst != nil:
				inPara = true
				line.Reset()
			case t.Name.Local == "t" && t.Name.Space == nsA && inPara:
				inRunTxt = true
			case t.Name.Local == "blip":
				if cur.iconRID == "" {
					for _, a := range t.Attr {
						if a.Name.Local == "embed" {
							cur.iconRID = a.Value
						}
					}
				}
			case t.Name.Local == "cNvPr":
				if cur.iconAlt == "" {
					var descr, title string
					for _, a := range t.Attr {
						switch a.Name.Local {
						case "descr":
							descr = a.Value
						case "title":
							title = a.Value
						}
					}
					if descr != "" {
						cur.iconAlt = descr
					} else {
						cur.iconAlt = title
					}
				}
			}

		case xml.CharData:
			if inRunTxt {
				line.Write(t)
			}

		case xml.EndElement:
			if cur == nil {
				continue
			}
			switch {
			case t.Name.Local == "t" && t.Name.Space == nsA:
				inRunTxt = false
			case t.Name.Local == "p" && t.Name.Space == nsA && inPara:
				inPara = false
				if textDst != nil {
					*textDst = append(*textDst, line.String())
				}
			case t.Name.Local == "t" && t.Name.Space == nsDgm,
				t.Name.Local == "txBody":
				textDst = nil
			}
			ptDepth--
			if ptDepth == 0 {
				flushPoint()
			}
		}
	}

	if cur != nil {
		flushPoint()
	}
	return g, nil
}
