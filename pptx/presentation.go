package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// SectionDecl is a declared slide grouping: a title plus the slide ids it
// claims, in declared order. Resolution against the actual deck happens in
// the extraction engine.
type SectionDecl struct {
	Title    string
	SlideIDs []int
}

type presentationXML struct {
	SldIDLst struct {
		IDs []sldIDXML `xml:"sldId"`
	} `xml:"sldIdLst"`
	ExtLst *presExtLstXML `xml:"extLst"`
}

// sldId carries both a plain id attribute and an r:id attribute. They share
// a local name, so attributes are captured raw and split by namespace.
type sldIDXML struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

func (s sldIDXML) slideID() (int, bool) {
	for _, a := range s.Attrs {
		if a.Name.Local == "id" && a.Name.Space == "" {
			id, err := strconv.Atoi(a.Value)
			return id, err == nil
		}
	}
	return 0, false
}

func (s sldIDXML) relID() string {
	for _, a := range s.Attrs {
		if a.Name.Local == "id" && a.Name.Space == nsR {
			return a.Value
		}
	}
	return ""
}

type presExtLstXML struct {
	Exts []struct {
		SectionLst *sectionLstXML `xml:"sectionLst"`
	} `xml:"ext"`
}

type sectionLstXML struct {
	Sections []struct {
		Name     string `xml:"name,attr"`
		SldIDLst struct {
			IDs []struct {
				ID int `xml:"id,attr"`
			} `xml:"sldId"`
		} `xml:"sldIdLst"`
	} `xml:"section"`
}

// SectionDecls returns the native section list declared in the presentation's
// extension block, in declared order. A deck without sections returns nil.
func (d *Document) SectionDecls() ([]SectionDecl, error) {
	var parsed presentationXML
	if err := xml.Unmarshal(d.presXML, &parsed); err != nil {
		return nil, fmt.Errorf("pptx: parsing presentation.xml: %w", err)
	}
	if parsed.ExtLst == nil {
		return nil, nil
	}

	var decls []SectionDecl
	for _, ext := range parsed.ExtLst.Exts {
		if ext.SectionLst == nil {
			continue
		}
		for _, sec := range ext.SectionLst.Sections {
			decl := SectionDecl{Title: sec.Name}
			for _, id := range sec.SldIDLst.IDs {
				decl.SlideIDs = append(decl.SlideIDs, id.ID)
			}
			decls = append(decls, decl)
		}
	}
	return decls, nil
}

// FallbackSectionDecls scans the raw extension block token by token, so a
// section list survives markup the typed parse chokes on. It returns whatever
// was collected before the first decoding error.
func (d *Document) FallbackSectionDecls() ([]SectionDecl, error) {
	decoder := xml.NewDecoder(bytes.NewReader(d.presXML))

	var decls []SectionDecl
	var current *SectionDecl
	inExtLst := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return decls, nil
			}
			return decls, fmt.Errorf("pptx: scanning extension block: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "extLst":
				inExtLst = true
			case "section":
				if !inExtLst {
					continue
				}
				current = &SectionDecl{}
				for _, a := range t.Attr {
					if a.Name.Local == "name" {
						current.Title = a.Value
					}
				}
			case "sldId":
				if current == nil {
					continue
				}
				for _, a := range t.Attr {
					if a.Name.Local == "id" && a.Name.Space == "" {
						if id, err := strconv.Atoi(a.Value); err == nil {
							current.SlideIDs = append(current.SlideIDs, id)
						}
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "extLst":
				inExtLst = false
			case "section":
				if current != nil {
					decls = append(decls, *current)
					current = nil
				}
			}
		}
	}
}

// loadSlides resolves the sldIdLst through the presentation's relationships
// and parses each slide part. Slides whose part cannot be resolved are
// skipped rather than failing the whole document. Only the slide list is
// parsed here: a damaged section extension must not keep the deck from
// opening.
func (d *Document) loadSlides() error {
	var parsed struct {
		SldIDLst struct {
			IDs []sldIDXML `xml:"sldId"`
		} `xml:"sldIdLst"`
	}
	if err := xml.Unmarshal(d.presXML, &parsed); err != nil {
		return fmt.Errorf("pptx: parsing presentation.xml: %w", err)
	}

	presPart := d.partRef("ppt/presentation.xml")
	for _, entry := range parsed.SldIDLst.IDs {
		slideID, ok := entry.slideID()
		if !ok {
			continue
		}
		ref, err := presPart.Related(entry.relID())
		if err != nil {
			d.logger.Debug("pptx: skipping unresolvable slide", "slide_id", slideID, "error", err)
			continue
		}
		slide, err := d.loadSlide(slideID, ref.Name())
		if err != nil {
			d.logger.Debug("pptx: skipping unparsable slide", "slide_id", slideID, "error", err)
			continue
		}
		d.slides = append(d.slides, slide)
	}
	return nil
}
