// Package deck defines the normalized output model for extracted
// presentations: a Presentation owns ordered Sections, which own ordered
// Slides, which own ordered content Blocks. All values are constructed once
// during extraction and treated as read-only afterwards.
package deck

// Block is one typed unit of slide content. Concrete types are Heading,
// Paragraph, List, Image, Table, SmartArt, Video and Link. The order of
// blocks within a slide follows top-to-bottom, then left-to-right shape
// placement.
type Block interface {
	blockType() string
}

// Heading is a slide heading (the slide title renders as level 1).
type Heading struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Paragraph is a plain run of body text.
type Paragraph struct {
	Text string `json:"text"`
}

// ListItem is one entry of a List. Items form a tree: each item owns its
// nested sub-items and no item refers back to its parent.
type ListItem struct {
	Text     string     `json:"text"`
	Level    int        `json:"level"`
	URL      string     `json:"url,omitempty"`
	Children []ListItem `json:"children"`
}

// List is a bullet list built from a text shape's paragraphs.
type List struct {
	Style string     `json:"style"`
	Items []ListItem `json:"items"`
}

// Image references an extracted media file by its relative output path.
type Image struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

// Table holds trimmed cell text in row-major order.
type Table struct {
	Rows [][]string `json:"rows"`
}

// DiagramNode is one node of a reconstructed diagram hierarchy. The ID is
// unique within a single diagram instance; Level is recomputed during tree
// building (roots are 0). Each node owns its children.
type DiagramNode struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Level    int           `json:"level"`
	Icon     string        `json:"icon,omitempty"`
	IconAlt  string        `json:"icon_alt,omitempty"`
	Children []DiagramNode `json:"children"`
}

// SmartArt is a diagram reconstructed from its point/connection graph.
type SmartArt struct {
	Layout string        `json:"layout"`
	Nodes  []DiagramNode `json:"nodes"`
}

// Video references an extracted embedded video file.
type Video struct {
	Src   string `json:"src"`
	Title string `json:"title"`
}

// Link is an external hyperlink (also used for externally hosted video).
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

func (Heading) blockType() string   { return "heading" }
func (Paragraph) blockType() string { return "paragraph" }
func (List) blockType() string      { return "list" }
func (Image) blockType() string     { return "image" }
func (Table) blockType() string     { return "table" }
func (SmartArt) blockType() string  { return "smart_art" }
func (Video) blockType() string     { return "video" }
func (Link) blockType() string      { return "link" }

// Slide is one assembled slide. Order is 1-based and strictly increasing
// across the whole presentation, independent of section boundaries.
type Slide struct {
	Order   int     `json:"order"`
	Title   string  `json:"title"`
	Layout  string  `json:"layout"`
	Notes   string  `json:"notes"`
	Content []Block `json:"content"`
}

// Section is a titled, ordered group of slides. The title may be synthetic
// when the source document declares no sections.
type Section struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Stats holds per-presentation counters.
type Stats struct {
	SlideCount int `json:"slide_count"`
	ImageCount int `json:"image_count"`
}

// Metadata describes the provenance of one extracted presentation.
type Metadata struct {
	ID          string `json:"id"`
	SourceFile  string `json:"source_file"`
	ProcessedAt string `json:"processed_at"`
	Stats       Stats  `json:"stats"`
}

// Presentation is the root of the extracted content tree for one input file.
type Presentation struct {
	Metadata Metadata  `json:"metadata"`
	Sections []Section `json:"sections"`
}

// Title returns a display title for the presentation: the first slide's
// title, falling back to the metadata ID.
func (p *Presentation) Title() string {
	for _, sec := range p.Sections {
		for _, sl := range sec.Slides {
			if sl.Title != "" {
				return sl.Title
			}
			return p.Metadata.ID
		}
	}
	return p.Metadata.ID
}
