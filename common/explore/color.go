package explore

import "unicode/utf16"

// TagColor is the display colour pair of a tag chip
type TagColor struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// palette order is part of the contract: the hash indexes into it
var palette = [...]TagColor{
	{Background: "rgba(59, 130, 246, 0.2)", Foreground: "#60a5fa"}, // blue
	{Background: "rgba(34, 197, 94, 0.2)", Foreground: "#4ade80"},  // green
	{Background: "rgba(239, 68, 68, 0.2)", Foreground: "#f87171"},  // red
	{Background: "rgba(234, 179, 8, 0.2)", Foreground: "#facc15"},  // yellow
	{Background: "rgba(168, 85, 247, 0.2)", Foreground: "#c084fc"}, // purple
	{Background: "rgba(236, 72, 153, 0.2)", Foreground: "#f472b6"}, // pink
}

// ColorFor maps a label to a palette entry. It depends only on the label's
// UTF-16 code units, so browser and server agree on the colour.
func ColorFor(label string) TagColor {
	return palette[colorIndex(label)]
}

// colorIndex computes hash = c + ((hash << 5) - hash) per code unit. The shift
// operand is truncated to int32 first and the shift wraps in 32 bits, while
// the subtraction keeps full precision.
func colorIndex(label string) int {
	var hash int64
	for _, c := range utf16.Encode([]rune(label)) {
		hash = int64(c) + (int64(int32(hash)<<5) - hash)
	}
	if hash < 0 {
		hash = -hash
	}
	return int(hash % int64(len(palette)))
}
