package extract

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/brunobiangulo/godeck/deck"
	"github.com/brunobiangulo/godeck/diagram"
	"github.com/brunobiangulo/godeck/pptx"
)

// videoExtensions maps embedded-media content types to output extensions.
// Anything unrecognized falls back to .mp4.
var videoExtensions = map[string]string{
	"video/mp4":       ".mp4",
	"video/x-m4v":     ".m4v",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
}

// assembleSlide orders a slide's shapes by (top, left), classifies each into
// content blocks, and returns the assembled slide plus the number of image
// blocks it emitted.
func assembleSlide(sl *pptx.Slide, order int, media *MediaStore, logger *slog.Logger) (deck.Slide, int) {
	out := deck.Slide{
		Order:  order,
		Layout: sl.LayoutName,
	}
	if out.Layout == "" {
		out.Layout = "Unknown"
	}

	// Title first: a heading, plus a link when the title text is hyperlinked.
	if ts := sl.TitleShape(); ts != nil {
		if title := strings.TrimSpace(ts.Text.Text()); title != "" {
			out.Title = title
			out.Content = append(out.Content, deck.Heading{Text: title, Level: 1})
			if url := firstHyperlink(ts.Text, sl.Rel); url != "" {
				out.Content = append(out.Content, deck.Link{Text: title, URL: url})
			}
		}
	}

	// Stable sort approximates reading order; encounter order breaks ties so
	// the document's own sequence survives for overlapping shapes.
	sorted := make([]*pptx.Shape, len(sl.Shapes))
	for i := range sl.Shapes {
		sorted[i] = &sl.Shapes[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Top != sorted[j].Top {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].Left < sorted[j].Left
	})

	images := 0
	for _, shape := range sorted {
		blocks, imageEmitted := classifyShape(shape, sl, order, media, logger)
		out.Content = append(out.Content, blocks...)
		if imageEmitted {
			images++
		}
	}

	if strings.TrimSpace(sl.Notes) != "" {
		out.Notes = sl.Notes
	}
	return out, images
}

// classifyShape maps one shape to zero or more content blocks. The video
// probe runs unconditionally; the remaining checks run in fixed priority
// (title-skip, table, diagram, image, text) with each failure degrading to
// the next branch rather than aborting the slide.
func classifyShape(shape *pptx.Shape, sl *pptx.Slide, order int, media *MediaStore, logger *slog.Logger) ([]deck.Block, bool) {
	var blocks []deck.Block

	if shape.HasVideo {
		if b := probeVideo(shape, sl, order, media, logger); b != nil {
			blocks = append(blocks, b)
		}
	}

	if ts := sl.TitleShape(); ts == shape {
		return blocks, false
	}

	if shape.Table != nil {
		rows := make([][]string, len(shape.Table))
		for i, row := range shape.Table {
			cells := make([]string, len(row))
			for j, cell := range row {
				cells[j] = strings.TrimSpace(cell)
			}
			rows[i] = cells
		}
		return append(blocks, deck.Table{Rows: rows}), false
	}

	if shape.DiagramDataRID != "" {
		if b := resolveDiagram(shape, sl, media, logger); b != nil {
			return append(blocks, b), false
		}
		// fall through: a frame whose diagram is unusable may still carry
		// image or text content
	}

	if shape.ImageRID != "" {
		if b := saveImage(shape, sl, order, media, logger); b != nil {
			return append(blocks, b), true
		}
		// persistence failed; treat as non-image and fall through to text
	}

	if txt := shape.Text; txt != nil && strings.TrimSpace(txt.Text()) != "" {
		var items []deck.ListItem
		for _, para := range txt.Paragraphs {
			text := strings.TrimSpace(para.Text())
			if text == "" {
				continue
			}
			items = append(items, deck.ListItem{
				Text:  text,
				Level: para.Level,
				URL:   paragraphHyperlink(para, sl.Rel),
			})
		}
		if len(items) > 0 {
			blocks = append(blocks, deck.List{Style: "bullet", Items: items})
		}
	}

	return blocks, false
}

// probeVideo resolves a shape's video reference. An external http(s) link
// becomes a Link block; embedded media is persisted and becomes a Video
// block. Anything unresolvable yields nothing.
func probeVideo(shape *pptx.Shape, sl *pptx.Slide, order int, media *MediaStore, logger *slog.Logger) deck.Block {
	title := shape.Name
	if title == "" {
		title = "Video"
	}

	if shape.VideoLinkRID != "" {
		target, external, ok := sl.Rel.TargetRef(shape.VideoLinkRID)
		if ok && external && (strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")) {
			return deck.Link{Text: title, URL: target}
		}
	}

	if shape.VideoEmbedRID == "" {
		return nil
	}
	ref, err := sl.Rel.Related(shape.VideoEmbedRID)
	if err != nil {
		logger.Debug("video: embed relationship unresolved", "shape", shape.ID, "error", err)
		return nil
	}
	blob, err := ref.Blob()
	if err != nil {
		logger.Debug("video: reading embedded media", "shape", shape.ID, "error", err)
		return nil
	}
	ext, ok := videoExtensions[ref.ContentType()]
	if !ok {
		ext = ".mp4"
	}
	name := fmt.Sprintf("slide_%d_%d%s", order, shape.ID, ext)
	src, err := media.Save(name, blob)
	if err != nil {
		logger.Debug("video: persisting embedded media", "shape", shape.ID, "error", err)
		return nil
	}
	logger.Info("extracted embedded video", "file", name)
	return deck.Video{Src: src, Title: title}
}

// resolveDiagram delegates to the diagram resolver and wraps the surviving
// roots in a SmartArt block. Every failure degrades to nil.
func resolveDiagram(shape *pptx.Shape, sl *pptx.Slide, media *MediaStore, logger *slog.Logger) deck.Block {
	ref, err := sl.Rel.Related(shape.DiagramDataRID)
	if err != nil {
		logger.Debug("diagram: data relationship unresolved", "shape", shape.ID, "error", err)
		return nil
	}
	blob, err := ref.Blob()
	if err != nil {
		logger.Debug("diagram: reading data part", "shape", shape.ID, "error", err)
		return nil
	}
	nodes, err := diagram.Resolve(blob, ref, media, logger)
	if err != nil {
		logger.Debug("diagram: resolution failed", "shape", shape.ID, "error", err)
		return nil
	}
	if len(nodes) == 0 {
		return nil
	}
	return deck.SmartArt{
		Layout: diagramLayoutName(shape, sl),
		Nodes:  nodes,
	}
}

type diagramLayoutXML struct {
	Title struct {
		Val string `xml:"val,attr"`
	} `xml:"title"`
}

// diagramLayoutName reads the diagram's layout definition title, or "".
func diagramLayoutName(shape *pptx.Shape, sl *pptx.Slide) string {
	if shape.DiagramLayoutRID == "" {
		return ""
	}
	ref, err := sl.Rel.Related(shape.DiagramLayoutRID)
	if err != nil {
		return ""
	}
	blob, err := ref.Blob()
	if err != nil {
		return ""
	}
	var parsed diagramLayoutXML
	if err := xml.Unmarshal(blob, &parsed); err != nil {
		return ""
	}
	return parsed.Title.Val
}

// saveImage persists the shape's image bytes and returns the Image block, or
// nil when the blob cannot be resolved or written.
func saveImage(shape *pptx.Shape, sl *pptx.Slide, order int, media *MediaStore, logger *slog.Logger) deck.Block {
	ref, err := sl.Rel.Related(shape.ImageRID)
	if err != nil {
		logger.Debug("image: relationship unresolved", "shape", shape.ID, "error", err)
		return nil
	}
	blob, err := ref.Blob()
	if err != nil {
		logger.Debug("image: reading blob", "shape", shape.ID, "error", err)
		return nil
	}
	name := fmt.Sprintf("slide_%d_%d.png", order, shape.ID)
	src, err := media.Save(name, blob)
	if err != nil {
		logger.Debug("image: persisting blob", "shape", shape.ID, "error", err)
		return nil
	}
	alt := shape.Name
	if alt == "" {
		alt = "Slide Image"
	}
	return deck.Image{Src: src, Alt: alt}
}

// firstHyperlink returns the first resolvable external hyperlink in a text
// body, scanning paragraphs in order.
func firstHyperlink(t *pptx.TextBody, rel pptx.PartResolver) string {
	if t == nil {
		return ""
	}
	for _, para := range t.Paragraphs {
		if url := paragraphHyperlink(para, rel); url != "" {
			return url
		}
	}
	return ""
}

// paragraphHyperlink returns the first run's resolvable external hyperlink.
func paragraphHyperlink(para pptx.TextParagraph, rel pptx.PartResolver) string {
	for _, run := range para.Runs {
		if run.HlinkRID == "" {
			continue
		}
		if target, external, ok := rel.TargetRef(run.HlinkRID); ok && external && target != "" {
			return target
		}
	}
	return ""
}
