package protocol

import "strings"

type Color string

const (
	ColorNone  Color = ""
	ColorRed   Color = "red"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
)

// TextPart is one colored run of a Print.
type TextPart struct {
	Text  string `json:"text"`
	Color Color  `json:"color,omitempty"`
}

// Print is a rich-text message shown in the overlay log.
type Print struct {
	Parts []TextPart `json:"parts"`
}

// Text builds an uncolored Print.
func Text(s string) Print {
	return Print{Parts: []TextPart{{Text: s}}}
}

// Colored builds a single-run colored Print.
func Colored(s string, c Color) Print {
	return Print{Parts: []TextPart{{Text: s, Color: c}}}
}

// Join concatenates the runs of several prints.
func Join(prints ...Print) Print {
	var out Print
	for _, p := range prints {
		out.Parts = append(out.Parts, p.Parts...)
	}
	return out
}

func (p Print) String() string {
	var b strings.Builder
	for _, part := range p.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// PrintFromJSON converts a PrintJSON packet into overlay text.
func PrintFromJSON(m PrintJSONMsg) Print {
	out := Print{Parts: make([]TextPart, 0, len(m.Data))}
	for _, d := range m.Data {
		out.Parts = append(out.Parts, TextPart{Text: d.Text, Color: Color(d.Color)})
	}
	return out
}
