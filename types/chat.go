package types //nolint:revive // types is a common Go package naming convention

import "fmt"

// Color names a player color slot as shown in chat lines.
type Color string

// Player colors by in-game slot, plus the two neutral names.
const (
	ColorBlue    Color = "Blue"
	ColorRed     Color = "Red"
	ColorGreen   Color = "Green"
	ColorYellow  Color = "Yellow"
	ColorTeal    Color = "Teal"
	ColorPurple  Color = "Purple"
	ColorGray    Color = "Gray"
	ColorOrange  Color = "Orange"
	ColorUnknown Color = "Unknown"
	ColorWhite   Color = "White"
)

// slotColors is indexed by color id.
var slotColors = [8]Color{
	ColorBlue,
	ColorRed,
	ColorGreen,
	ColorYellow,
	ColorTeal,
	ColorPurple,
	ColorGray,
	ColorOrange,
}

// ColorForSlot maps a color id to its name. Ids outside 0-7 map to ColorUnknown.
func ColorForSlot(id int) Color {
	if id < 0 || id >= len(slotColors) {
		return ColorUnknown
	}
	return slotColors[id]
}

// ChatLine is a render-ready chat line.
// Placeholder and error lines carry only Message and Color.
type ChatLine struct {
	Timestamp string `json:"timestamp,omitempty"`
	Player    string `json:"player,omitempty"`
	Color     Color  `json:"color"`
	Message   string `json:"message"`
}

// Text returns the line as drawn on the image.
func (l ChatLine) Text() string {
	if l.Player == "" && l.Timestamp == "" {
		return l.Message
	}
	return fmt.Sprintf("[%s] %s (%s): %s", l.Timestamp, l.Player, l.Color, l.Message)
}
