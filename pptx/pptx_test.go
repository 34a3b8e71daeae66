package pptx

import (
	"archive/zip"
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// buildDoc assembles an in-memory presentation package from part name to
// content and opens it.
func buildDoc(t *testing.T, parts map[string]string, opts ...Option) *Document {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range parts {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(data)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}

	doc, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), opts...)
	if err != nil {
		t.Fatalf("opening document: %v", err)
	}
	return doc
}

const presRelsXML = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
</Relationships>`

func slideXMLWithTitle(title string) string {
	return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
      <p:spPr><a:xfrm><a:off x="100" y="50"/></a:xfrm></p:spPr>
      <p:txBody><a:p><a:r><a:t>` + title + `</a:t></a:r></a:p></p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:sld>`
}

func TestSlideOrderFollowsSldIdLst(t *testing.T) {
	// The sldIdLst references the parts in reverse filename order on purpose:
	// declaration order wins, not part naming.
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId1"/>
    <p:sldId id="257" r:id="rId2"/>
  </p:sldIdLst>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": presRelsXML,
		"ppt/slides/slide1.xml":           slideXMLWithTitle("First Created"),
		"ppt/slides/slide2.xml":           slideXMLWithTitle("Declared First"),
	})
	defer doc.Close()

	slides := doc.Slides()
	if len(slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(slides))
	}
	if slides[0].ID != 256 || slides[1].ID != 257 {
		t.Errorf("slide ids = %d, %d, want 256, 257", slides[0].ID, slides[1].ID)
	}
	if got := slides[0].TitleShape().Text.Text(); got != "Declared First" {
		t.Errorf("first slide title = %q, want %q", got, "Declared First")
	}
}

func TestUnresolvableSlideSkipped(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId1"/>
    <p:sldId id="257" r:id="rId2"/>
  </p:sldIdLst>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": presRelsXML,
		// slide2.xml (rId1) is absent from the package
		"ppt/slides/slide1.xml": slideXMLWithTitle("Survivor"),
	}, WithLogger(logger))
	defer doc.Close()

	slides := doc.Slides()
	if len(slides) != 1 {
		t.Fatalf("got %d slides, want 1", len(slides))
	}
	if slides[0].ID != 257 {
		t.Errorf("surviving slide id = %d, want 257", slides[0].ID)
	}
	// The skip notice goes through the injected logger, not the global one.
	if !strings.Contains(logBuf.String(), "skipping unresolvable slide") {
		t.Errorf("log output = %q, want a skip notice", logBuf.String())
	}
}

const sectionedPresXML = `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId2"/>
    <p:sldId id="257" r:id="rId1"/>
  </p:sldIdLst>
  <p:extLst>
    <p:ext uri="{521415D9-36F7-43E2-AB2F-B90AF26B5E84}">
      <p14:sectionLst xmlns:p14="http://schemas.microsoft.com/office/powerpoint/2010/main">
        <p14:section name="Intro" id="{AAAA}">
          <p14:sldIdLst><p14:sldId id="256"/></p14:sldIdLst>
        </p14:section>
        <p14:section name="Deep Dive" id="{BBBB}">
          <p14:sldIdLst><p14:sldId id="257"/></p14:sldIdLst>
        </p14:section>
      </p14:sectionLst>
    </p:ext>
  </p:extLst>
</p:presentation>`

func TestSectionDecls(t *testing.T) {
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml":            sectionedPresXML,
		"ppt/_rels/presentation.xml.rels": presRelsXML,
		"ppt/slides/slide1.xml":           slideXMLWithTitle("One"),
		"ppt/slides/slide2.xml":           slideXMLWithTitle("Two"),
	})
	defer doc.Close()

	decls, err := doc.SectionDecls()
	if err != nil {
		t.Fatalf("SectionDecls: %v", err)
	}
	if len(decls) != 2 {
		t.Fatalf("got %d sections, want 2", len(decls))
	}
	if decls[0].Title != "Intro" || decls[1].Title != "Deep Dive" {
		t.Errorf("titles = %q, %q", decls[0].Title, decls[1].Title)
	}
	if len(decls[0].SlideIDs) != 1 || decls[0].SlideIDs[0] != 256 {
		t.Errorf("Intro slide ids = %v, want [256]", decls[0].SlideIDs)
	}
}

func TestSectionDeclsAbsent(t *testing.T) {
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:sldIdLst/>
</p:presentation>`,
	})
	defer doc.Close()

	decls, err := doc.SectionDecls()
	if err != nil {
		t.Fatalf("SectionDecls: %v", err)
	}
	if decls != nil {
		t.Errorf("got %v, want nil for a deck without sections", decls)
	}
}

func TestFallbackSectionDeclsSurvivesBadIDs(t *testing.T) {
	// The second section's first sldId is non-numeric, which makes the typed
	// parse fail; the token scan keeps everything it can interpret.
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:sldIdLst/>
  <p:extLst>
    <p:ext uri="{521415D9-36F7-43E2-AB2F-B90AF26B5E84}">
      <p14:sectionLst xmlns:p14="http://schemas.microsoft.com/office/powerpoint/2010/main">
        <p14:section name="Good">
          <p14:sldIdLst><p14:sldId id="256"/></p14:sldIdLst>
        </p14:section>
        <p14:section name="Damaged">
          <p14:sldIdLst><p14:sldId id="oops"/><p14:sldId id="257"/></p14:sldIdLst>
        </p14:section>
      </p14:sectionLst>
    </p:ext>
  </p:extLst>
</p:presentation>`,
	})
	defer doc.Close()

	if _, err := doc.SectionDecls(); err == nil {
		t.Fatal("typed parse should fail on the non-numeric slide id")
	}

	decls, err := doc.FallbackSectionDecls()
	if err != nil {
		t.Fatalf("FallbackSectionDecls: %v", err)
	}
	if len(decls) != 2 {
		t.Fatalf("got %d sections, want 2", len(decls))
	}
	if decls[0].Title != "Good" || decls[1].Title != "Damaged" {
		t.Errorf("titles = %q, %q", decls[0].Title, decls[1].Title)
	}
	if len(decls[1].SlideIDs) != 1 || decls[1].SlideIDs[0] != 257 {
		t.Errorf("Damaged slide ids = %v, want [257]", decls[1].SlideIDs)
	}
}

const capabilitySlideXML = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr>
      <p:spPr/>
      <p:txBody><a:p><a:r><a:t>Caps</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:sp>
      <p:nvSpPr><p:cNvPr id="3" name="Body 2"/><p:nvPr/></p:nvSpPr>
      <p:spPr><a:xfrm><a:off x="10" y="900"/></a:xfrm></p:spPr>
      <p:txBody>
        <a:p><a:r><a:t>top level</a:t></a:r></a:p>
        <a:p><a:pPr lvl="1"/><a:r><a:rPr><a:hlinkClick r:id="rId5"/></a:rPr><a:t>nested link</a:t></a:r></a:p>
      </p:txBody>
    </p:sp>
    <p:pic>
      <p:nvPicPr><p:cNvPr id="4" name="Photo"/><p:nvPr/></p:nvPicPr>
      <p:blipFill><a:blip r:embed="rId6"/></p:blipFill>
      <p:spPr><a:xfrm><a:off x="20" y="400"/></a:xfrm></p:spPr>
    </p:pic>
    <p:graphicFrame>
      <p:nvGraphicFramePr><p:cNvPr id="5" name="Table 4"/><p:nvPr/></p:nvGraphicFramePr>
      <p:xfrm><a:off x="0" y="600"/></p:xfrm>
      <a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">
        <a:tbl><a:tr>
          <a:tc><a:txBody><a:p><a:r><a:t>A</a:t></a:r></a:p></a:txBody></a:tc>
          <a:tc><a:txBody><a:p><a:r><a:t>B</a:t></a:r></a:p></a:txBody></a:tc>
        </a:tr></a:tbl>
      </a:graphicData></a:graphic>
    </p:graphicFrame>
    <p:graphicFrame>
      <p:nvGraphicFramePr><p:cNvPr id="6" name="Diagram 5"/><p:nvPr/></p:nvGraphicFramePr>
      <p:xfrm><a:off x="0" y="700"/></p:xfrm>
      <a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/diagram">
        <dgm:relIds xmlns:dgm="http://schemas.openxmlformats.org/drawingml/2006/diagram" r:dm="rId7" r:lo="rId8"/>
      </a:graphicData></a:graphic>
    </p:graphicFrame>
    <p:pic>
      <p:nvPicPr>
        <p:cNvPr id="7" name="Clip"/>
        <p:nvPr>
          <a:videoFile r:link="rId9"/>
          <p:extLst><p:ext uri="{DAA4B4D4-6D71-4841-9C94-3DE7FCFB9230}">
            <p14:media xmlns:p14="http://schemas.microsoft.com/office/powerpoint/2010/main" r:embed="rId10"/>
          </p:ext></p:extLst>
        </p:nvPr>
      </p:nvPicPr>
      <p:blipFill><a:blip r:embed="rId11"/></p:blipFill>
      <p:spPr><a:xfrm><a:off x="0" y="800"/></a:xfrm></p:spPr>
    </p:pic>
  </p:spTree></p:cSld>
</p:sld>`

func TestShapeCapabilities(t *testing.T) {
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": presRelsXML,
		"ppt/slides/slide1.xml":           capabilitySlideXML,
	})
	defer doc.Close()

	slides := doc.Slides()
	if len(slides) != 1 {
		t.Fatalf("got %d slides, want 1", len(slides))
	}
	sl := slides[0]
	if len(sl.Shapes) != 6 {
		t.Fatalf("got %d shapes, want 6", len(sl.Shapes))
	}

	if sl.TitleShapeIdx != 0 {
		t.Errorf("TitleShapeIdx = %d, want 0 (ctrTitle counts as title)", sl.TitleShapeIdx)
	}

	body := sl.Shapes[1]
	if body.Top != 900 || body.Left != 10 {
		t.Errorf("body position = (%d, %d), want (900, 10)", body.Top, body.Left)
	}
	if len(body.Text.Paragraphs) != 2 {
		t.Fatalf("body paragraphs = %d, want 2", len(body.Text.Paragraphs))
	}
	if body.Text.Paragraphs[1].Level != 1 {
		t.Errorf("second paragraph level = %d, want 1", body.Text.Paragraphs[1].Level)
	}
	if got := body.Text.Paragraphs[1].Runs[0].HlinkRID; got != "rId5" {
		t.Errorf("hyperlink rid = %q, want rId5", got)
	}

	if got := sl.Shapes[2].ImageRID; got != "rId6" {
		t.Errorf("image rid = %q, want rId6", got)
	}

	table := sl.Shapes[3]
	if len(table.Table) != 1 || len(table.Table[0]) != 2 {
		t.Fatalf("table shape rows = %v", table.Table)
	}
	if table.Table[0][0] != "A" || table.Table[0][1] != "B" {
		t.Errorf("table cells = %v, want [A B]", table.Table[0])
	}

	diag := sl.Shapes[4]
	if diag.DiagramDataRID != "rId7" || diag.DiagramLayoutRID != "rId8" {
		t.Errorf("diagram rids = %q, %q, want rId7, rId8", diag.DiagramDataRID, diag.DiagramLayoutRID)
	}

	video := sl.Shapes[5]
	if !video.HasVideo {
		t.Fatal("video shape should have HasVideo set")
	}
	if video.VideoLinkRID != "rId9" || video.VideoEmbedRID != "rId10" {
		t.Errorf("video rids = %q, %q, want rId9, rId10", video.VideoLinkRID, video.VideoEmbedRID)
	}
	// The image branch stays available even for a video shape.
	if video.ImageRID != "rId11" {
		t.Errorf("video poster rid = %q, want rId11", video.ImageRID)
	}
}

func TestLayoutAndNotes(t *testing.T) {
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": presRelsXML,
		"ppt/slides/slide1.xml":           slideXMLWithTitle("One"),
		"ppt/slides/_rels/slide1.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout3.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide1.xml"/>
</Relationships>`,
		"ppt/slideLayouts/slideLayout3.xml": `<?xml version="1.0"?>
<p:sldLayout xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld name="Title and Content"/>
</p:sldLayout>`,
		"ppt/notesSlides/notesSlide1.xml": `<?xml version="1.0"?>
<p:notes xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
         xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:cNvPr id="2" name="Slide Image"/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr>
      <p:spPr/>
    </p:sp>
    <p:sp>
      <p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder"/><p:nvPr><p:ph type="body"/></p:nvPr></p:nvSpPr>
      <p:spPr/>
      <p:txBody><a:p><a:r><a:t>speaker note line</a:t></a:r></a:p></p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:notes>`,
	})
	defer doc.Close()

	sl := doc.Slides()[0]
	if sl.LayoutName != "Title and Content" {
		t.Errorf("LayoutName = %q, want %q", sl.LayoutName, "Title and Content")
	}
	if sl.Notes != "speaker note line" {
		t.Errorf("Notes = %q, want %q", sl.Notes, "speaker note line")
	}
}

func TestPartResolution(t *testing.T) {
	doc := buildDoc(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": presRelsXML,
		"ppt/slides/slide1.xml":           slideXMLWithTitle("One"),
		"ppt/slides/_rels/slide1.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/page" TargetMode="External"/>
</Relationships>`,
		"ppt/media/image1.png": "fake png bytes",
		"[Content_Types].xml": `<?xml version="1.0"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="png" ContentType="image/png"/>
</Types>`,
	})
	defer doc.Close()

	rel := doc.Slides()[0].Rel

	ref, err := rel.Related("rId1")
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if ref.Name() != "ppt/media/image1.png" {
		t.Errorf("resolved part = %q, want ppt/media/image1.png", ref.Name())
	}
	blob, err := ref.Blob()
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if string(blob) != "fake png bytes" {
		t.Errorf("blob = %q", blob)
	}
	if ct := ref.ContentType(); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}

	target, external, ok := rel.TargetRef("rId2")
	if !ok || !external {
		t.Fatalf("TargetRef = (%q, %v, %v), want external hit", target, external, ok)
	}
	if target != "https://example.com/page" {
		t.Errorf("target = %q", target)
	}

	if _, err := rel.Related("rId2"); err == nil {
		t.Error("Related should refuse external relationships")
	}
	if _, err := rel.Related("rId99"); err == nil {
		t.Error("Related should fail on unknown ids")
	}
}
