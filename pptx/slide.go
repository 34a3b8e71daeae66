package pptx

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Slide is one parsed slide: its shapes in document order with capabilities
// computed once, plus the slide part's relationship resolver. Fields are
// plain data so engine tests can build slides directly.
type Slide struct {
	ID       int
	PartName string

	Shapes []Shape
	// TitleShapeIdx indexes the designated title placeholder in Shapes,
	// -1 when the slide has none.
	TitleShapeIdx int

	Notes      string
	LayoutName string

	Rel PartResolver
}

// TitleShape returns the slide's title placeholder, or nil.
func (s *Slide) TitleShape() *Shape {
	if s.TitleShapeIdx < 0 || s.TitleShapeIdx >= len(s.Shapes) {
		return nil
	}
	return &s.Shapes[s.TitleShapeIdx]
}

// Shape is one shape with its capability set resolved at parse time. At most
// one of Table, Text, ImageRID and DiagramDataRID is expected, but nothing
// enforces that; classification priority lives in the engine.
type Shape struct {
	ID   int
	Name string

	// Position in EMU; absent coordinates stay 0.
	Top  int64
	Left int64

	IsTitle bool

	// Table holds per-cell text (paragraphs joined by newline), row-major.
	Table [][]string

	Text *TextBody

	// ImageRID is the blip relationship carrying the shape's image bytes.
	ImageRID string

	DiagramDataRID   string
	DiagramLayoutRID string

	// HasVideo marks a videoFile element anywhere in the shape's
	// non-visual properties. The link and embed ids may each be empty.
	HasVideo      bool
	VideoLinkRID  string
	VideoEmbedRID string

	// isBody marks a "body" placeholder; only consulted on notes slides.
	isBody bool
}

// TextBody is the paragraph content of a text shape.
type TextBody struct {
	Paragraphs []TextParagraph
}

// Text returns all paragraphs joined by newlines.
func (t *TextBody) Text() string {
	if t == nil {
		return ""
	}
	lines := make([]string, len(t.Paragraphs))
	for i, p := range t.Paragraphs {
		lines[i] = p.Text()
	}
	return strings.Join(lines, "\n")
}

// TextParagraph is one paragraph with its native indent level.
type TextParagraph struct {
	Level int
	Runs  []TextRun
}

// Text concatenates the paragraph's runs.
func (p TextParagraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// TextRun is one run of text, optionally carrying a hyperlink relationship.
type TextRun struct {
	Text     string
	HlinkRID string
}

// ---------------------------------------------------------------------------
// Slide XML structures (simplified, namespace-tolerant like the rest of the
// package: unqualified element tags match any namespace)
// ---------------------------------------------------------------------------

type slideXML struct {
	CSld struct {
		SpTree spTreeXML `xml:"spTree"`
	} `xml:"cSld"`
}

type cNvPrXML struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type phXML struct {
	Type string `xml:"type,attr"`
}

type videoFileXML struct {
	Link string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships link,attr"`
}

type nvPrXML struct {
	Ph        *phXML        `xml:"ph"`
	VideoFile *videoFileXML `xml:"videoFile"`
	ExtLst    *struct {
		Exts []struct {
			Media *struct {
				Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
			} `xml:"media"`
		} `xml:"ext"`
	} `xml:"extLst"`
}

func (nv nvPrXML) mediaEmbedRID() string {
	if nv.ExtLst == nil {
		return ""
	}
	for _, ext := range nv.ExtLst.Exts {
		if ext.Media != nil && ext.Media.Embed != "" {
			return ext.Media.Embed
		}
	}
	return ""
}

type xfrmXML struct {
	Off struct {
		X int64 `xml:"x,attr"`
		Y int64 `xml:"y,attr"`
	} `xml:"off"`
}

type txBodyXML struct {
	Paras []paraXML `xml:"p"`
}

type paraXML struct {
	PPr *struct {
		Lvl int `xml:"lvl,attr"`
	} `xml:"pPr"`
	Runs []runXML `xml:"r"`
}

type runXML struct {
	RPr *struct {
		Hlink *struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"hlinkClick"`
	} `xml:"rPr"`
	T string `xml:"t"`
}

func (t txBodyXML) toTextBody() *TextBody {
	body := &TextBody{}
	for _, p := range t.Paras {
		para := TextParagraph{}
		if p.PPr != nil {
			para.Level = p.PPr.Lvl
		}
		for _, r := range p.Runs {
			run := TextRun{Text: r.T}
			if r.RPr != nil && r.RPr.Hlink != nil {
				run.HlinkRID = r.RPr.Hlink.RID
			}
			para.Runs = append(para.Runs, run)
		}
		body.Paragraphs = append(body.Paragraphs, para)
	}
	return body
}

type spXML struct {
	NvSpPr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
		NvPr  nvPrXML  `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr struct {
		Xfrm *xfrmXML `xml:"xfrm"`
	} `xml:"spPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type picXML struct {
	NvPicPr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
		NvPr  nvPrXML  `xml:"nvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
	SpPr struct {
		Xfrm *xfrmXML `xml:"xfrm"`
	} `xml:"spPr"`
}

type frameXML struct {
	NvGraphicFramePr struct {
		CNvPr cNvPrXML `xml:"cNvPr"`
		NvPr  nvPrXML  `xml:"nvPr"`
	} `xml:"nvGraphicFramePr"`
	Xfrm    *xfrmXML `xml:"xfrm"`
	Graphic struct {
		GraphicData struct {
			URI    string  `xml:"uri,attr"`
			Tbl    *tblXML `xml:"tbl"`
			RelIDs *struct {
				DM string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships dm,attr"`
				LO string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships lo,attr"`
			} `xml:"relIds"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type tblXML struct {
	Rows []struct {
		Cells []struct {
			TxBody txBodyXML `xml:"txBody"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// spTree holds sp, pic and graphicFrame children interleaved in document
// order, which encoding/xml's struct mapping cannot preserve across separate
// slices, so decoding is done by hand.
type spTreeXML struct {
	shapes []Shape
}

func (t *spTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sp":
				var sp spXML
				if err := d.DecodeElement(&sp, &el); err != nil {
					return err
				}
				t.shapes = append(t.shapes, sp.toShape())
			case "pic":
				var pic picXML
				if err := d.DecodeElement(&pic, &el); err != nil {
					return err
				}
				t.shapes = append(t.shapes, pic.toShape())
			case "graphicFrame":
				var frame frameXML
				if err := d.DecodeElement(&frame, &el); err != nil {
					return err
				}
				t.shapes = append(t.shapes, frame.toShape())
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el.Name == start.Name {
				return nil
			}
		}
	}
}

func (sp spXML) toShape() Shape {
	s := Shape{
		ID:   sp.NvSpPr.CNvPr.ID,
		Name: sp.NvSpPr.CNvPr.Name,
	}
	if sp.SpPr.Xfrm != nil {
		s.Left = sp.SpPr.Xfrm.Off.X
		s.Top = sp.SpPr.Xfrm.Off.Y
	}
	if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
		s.IsTitle = ph.Type == "title" || ph.Type == "ctrTitle"
		s.isBody = ph.Type == "body"
	}
	if sp.TxBody != nil {
		s.Text = sp.TxBody.toTextBody()
	}
	applyVideo(&s, sp.NvSpPr.NvPr)
	return s
}

func (pic picXML) toShape() Shape {
	s := Shape{
		ID:       pic.NvPicPr.CNvPr.ID,
		Name:     pic.NvPicPr.CNvPr.Name,
		ImageRID: pic.BlipFill.Blip.Embed,
	}
	if pic.SpPr.Xfrm != nil {
		s.Left = pic.SpPr.Xfrm.Off.X
		s.Top = pic.SpPr.Xfrm.Off.Y
	}
	applyVideo(&s, pic.NvPicPr.NvPr)
	return s
}

func (f frameXML) toShape() Shape {
	s := Shape{
		ID:   f.NvGraphicFramePr.CNvPr.ID,
		Name: f.NvGraphicFramePr.CNvPr.Name,
	}
	if f.Xfrm != nil {
		s.Left = f.Xfrm.Off.X
		s.Top = f.Xfrm.Off.Y
	}
	gd := f.Graphic.GraphicData
	if gd.Tbl != nil && gd.URI == uriTable {
		var rows [][]string
		for _, row := range gd.Tbl.Rows {
			var cells []string
			for _, cell := range row.Cells {
				cells = append(cells, cell.TxBody.toTextBody().Text())
			}
			rows = append(rows, cells)
		}
		s.Table = rows
	}
	if gd.URI == uriDiagram && gd.RelIDs != nil {
		s.DiagramDataRID = gd.RelIDs.DM
		s.DiagramLayoutRID = gd.RelIDs.LO
	}
	applyVideo(&s, f.NvGraphicFramePr.NvPr)
	return s
}

func applyVideo(s *Shape, nv nvPrXML) {
	if nv.VideoFile == nil {
		return
	}
	s.HasVideo = true
	s.VideoLinkRID = nv.VideoFile.Link
	s.VideoEmbedRID = nv.mediaEmbedRID()
}

// ---------------------------------------------------------------------------
// Slide loading
// ---------------------------------------------------------------------------

func (d *Document) loadSlide(slideID int, partName string) (*Slide, error) {
	data, err := d.readPart(partName)
	if err != nil {
		return nil, err
	}
	var parsed slideXML
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("pptx: parsing %s: %w", partName, err)
	}

	part := d.partRef(partName)
	slide := &Slide{
		ID:            slideID,
		PartName:      partName,
		Shapes:        parsed.CSld.SpTree.shapes,
		TitleShapeIdx: -1,
		Rel:           part,
	}
	for i, sh := range slide.Shapes {
		if sh.IsTitle {
			slide.TitleShapeIdx = i
			break
		}
	}

	slide.LayoutName = d.layoutName(part)
	slide.Notes = d.notesText(part)
	return slide, nil
}

type layoutXML struct {
	CSld struct {
		Name string `xml:"name,attr"`
	} `xml:"cSld"`
}

// layoutName resolves the slide's layout part and returns its display name,
// or "" when unavailable.
func (d *Document) layoutName(slidePart *Part) string {
	for rID, rel := range slidePart.rels {
		if !strings.HasSuffix(rel.Type, relTypeSlideLayout) {
			continue
		}
		ref, err := slidePart.Related(rID)
		if err != nil {
			return ""
		}
		blob, err := ref.Blob()
		if err != nil {
			return ""
		}
		var parsed layoutXML
		if err := xml.Unmarshal(blob, &parsed); err != nil {
			return ""
		}
		return parsed.CSld.Name
	}
	return ""
}

// notesText returns the text of the notes slide's body placeholder, with
// paragraphs joined by newlines, or "" when the slide has no notes.
func (d *Document) notesText(slidePart *Part) string {
	for rID, rel := range slidePart.rels {
		if !strings.HasSuffix(rel.Type, relTypeNotesSlide) {
			continue
		}
		ref, err := slidePart.Related(rID)
		if err != nil {
			return ""
		}
		blob, err := ref.Blob()
		if err != nil {
			return ""
		}
		var parsed slideXML
		if err := xml.Unmarshal(blob, &parsed); err != nil {
			return ""
		}
		for _, sh := range parsed.CSld.SpTree.shapes {
			if sh.Text != nil && sh.isBody {
				return sh.Text.Text()
			}
		}
		return ""
	}
	return ""
}
