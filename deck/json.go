package deck

import "encoding/json"

// Blocks serialize as tagged objects: the variant's fields plus a "type"
// discriminator ("heading", "list", "smart_art", ...), which is what the
// generated site's viewer dispatches on.

func (h Heading) MarshalJSON() ([]byte, error) {
	type alias Heading
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"heading", alias(h)})
}

func (p Paragraph) MarshalJSON() ([]byte, error) {
	type alias Paragraph
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"paragraph", alias(p)})
}

func (l List) MarshalJSON() ([]byte, error) {
	type alias List
	a := alias(l)
	if a.Style == "" {
		a.Style = "bullet"
	}
	if a.Items == nil {
		a.Items = []ListItem{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"list", a})
}

func (i Image) MarshalJSON() ([]byte, error) {
	type alias Image
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"image", alias(i)})
}

func (t Table) MarshalJSON() ([]byte, error) {
	type alias Table
	a := alias(t)
	if a.Rows == nil {
		a.Rows = [][]string{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"table", a})
}

func (s SmartArt) MarshalJSON() ([]byte, error) {
	type alias SmartArt
	a := alias(s)
	if a.Nodes == nil {
		a.Nodes = []DiagramNode{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"smart_art", a})
}

func (v Video) MarshalJSON() ([]byte, error) {
	type alias Video
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"video", alias(v)})
}

func (l Link) MarshalJSON() ([]byte, error) {
	type alias Link
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{"link", alias(l)})
}

// MarshalJSON keeps children as an empty array rather than null so consumers
// can recurse without nil checks.
func (n DiagramNode) MarshalJSON() ([]byte, error) {
	type alias DiagramNode
	a := alias(n)
	if a.Children == nil {
		a.Children = []DiagramNode{}
	}
	return json.Marshal(a)
}

// MarshalJSON mirrors DiagramNode: children always serialize as an array.
func (i ListItem) MarshalJSON() ([]byte, error) {
	type alias ListItem
	a := alias(i)
	if a.Children == nil {
		a.Children = []ListItem{}
	}
	return json.Marshal(a)
}

// MarshalJSON keeps the content array non-null for slides with no blocks.
func (s Slide) MarshalJSON() ([]byte, error) {
	type alias Slide
	a := alias(s)
	if a.Content == nil {
		a.Content = []Block{}
	}
	return json.Marshal(a)
}
