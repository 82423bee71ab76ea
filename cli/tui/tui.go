package tui

import (
	"fmt"
	"slices"
)

// ViewToday is the game-day replay list.
const ViewToday = "today"

// supportedViews lists the view types with an interactive mode.
var supportedViews = []string{ViewToday}

// Run starts the TUI for viewType.
func Run(viewType string, data any) error {
	switch viewType {
	case ViewToday:
		return RunTodayTUI(data)
	default:
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(supportedViews, viewType)
}

// SupportedTUIViews returns the view types that support TUI.
func SupportedTUIViews() []string {
	return slices.Clone(supportedViews)
}
