package extract

import (
	"log/slog"

	"github.com/brunobiangulo/godeck/pptx"
)

// DefaultSectionTitle names the synthetic section used when a deck declares
// no sections at all.
const DefaultSectionTitle = "Default"

// sectionSource is the document-level section accessor capability: the
// native declaration list and the tolerant fallback scan of the raw
// extension block.
type sectionSource interface {
	SectionDecls() ([]pptx.SectionDecl, error)
	FallbackSectionDecls() ([]pptx.SectionDecl, error)
}

// sectionGroup pairs a resolved section title with the slides it owns.
type sectionGroup struct {
	title  string
	slides []*pptx.Slide
}

// resolveSections groups a deck's slides by a three-tier chain: native
// section declarations, then the declarative fallback, then a single
// synthetic section. Whatever tier wins, the concatenation of the returned
// groups covers every slide exactly once: slide ids that resolve nowhere are
// dropped, duplicates keep their first placement, and slides no section
// claims are appended in deck order as a trailing untitled-default group.
func resolveSections(src sectionSource, slides []*pptx.Slide, logger *slog.Logger) []sectionGroup {
	decls, err := src.SectionDecls()
	if err != nil {
		logger.Warn("sections: native declaration parse failed", "error", err)
		decls = nil
	}
	if groups := resolveDecls(decls, slides); len(groups) > 0 {
		return groups
	}

	decls, err = src.FallbackSectionDecls()
	if err != nil {
		logger.Warn("sections: fallback scan failed", "error", err)
	}
	if groups := resolveDecls(decls, slides); len(groups) > 0 {
		return groups
	}

	return []sectionGroup{{title: DefaultSectionTitle, slides: slides}}
}

// resolveDecls maps declared slide ids onto the deck's slide-identity index.
// Sections that retain no slides disappear.
func resolveDecls(decls []pptx.SectionDecl, slides []*pptx.Slide) []sectionGroup {
	if len(decls) == 0 {
		return nil
	}

	byID := make(map[int]*pptx.Slide, len(slides))
	for _, sl := range slides {
		byID[sl.ID] = sl
	}

	assigned := make(map[int]bool)
	var groups []sectionGroup
	for _, decl := range decls {
		var group sectionGroup
		group.title = decl.Title
		for _, id := range decl.SlideIDs {
			sl, ok := byID[id]
			if !ok || assigned[id] {
				continue
			}
			assigned[id] = true
			group.slides = append(group.slides, sl)
		}
		if len(group.slides) > 0 {
			groups = append(groups, group)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	// Slides the declarations never claimed still belong to the deck.
	var rest []*pptx.Slide
	for _, sl := range slides {
		if !assigned[sl.ID] {
			rest = append(rest, sl)
		}
	}
	if len(rest) > 0 {
		groups = append(groups, sectionGroup{title: DefaultSectionTitle, slides: rest})
	}
	return groups
}
