package replay

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pithecene-io/replaycast/types"
)

// GameSpeed is the in-game clock multiplier of a standard-speed match.
// Replay durations are divided by it to get wall-clock length.
const GameSpeed = 1.7

// NoChatMessage is drawn when a replay carries no chat at all.
const NoChatMessage = "Only boring people in this game, there was no chat"

// unknownPlayer names a speaker missing from the player list.
const unknownPlayer = "Unknown"

// fileNameLayout matches the "@2025.09.22 185103" part of replay names.
const fileNameLayout = "2006.01.02 150405"

// ChatLines turns a replay into render-ready lines, preserving chat order.
// A degraded replay yields one error line; a replay without chat yields one
// placeholder line.
func ChatLines(r *types.Replay) []types.ChatLine {
	if r.Degraded {
		return []types.ChatLine{{
			Color:   types.ColorWhite,
			Message: fmt.Sprintf("Error parsing replay %s: %s", r.Path, r.Err),
		}}
	}

	lines := make([]types.ChatLine, 0, len(r.Chat))
	for _, c := range r.Chat {
		name := unknownPlayer
		color := types.ColorUnknown
		if p, ok := r.Player(c.PlayerNumber); ok {
			name = p.Name
			color = types.ColorForSlot(p.ColorID)
		}
		lines = append(lines, types.ChatLine{
			Timestamp: FormatClock(c.TimestampMs),
			Player:    name,
			Color:     color,
			Message:   c.Message,
		})
	}

	if len(lines) == 0 {
		lines = append(lines, types.ChatLine{Color: types.ColorWhite, Message: NoChatMessage})
	}
	return lines
}

// FormatClock renders a millisecond offset as HH:MM:SS on a 24h clock.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return time.UnixMilli(ms).UTC().Format("15:04:05")
}

// Header builds the first image line: when the match was played and how
// long it lasted in real time.
//
// The date is taken from the replay file name when it carries one
// ("... @2025.09.22 185103.aoe2record"), otherwise from modTime.
func Header(r *types.Replay, modTime time.Time) string {
	played := PlayedAt(r.Path, modTime)

	duration := "Unknown duration"
	if !r.Degraded && r.DurationMs > 0 {
		wall := time.Duration(float64(r.DurationMs)/GameSpeed) * time.Millisecond
		duration = FormatClock(wall.Milliseconds())
	}

	return fmt.Sprintf("%s at %s (Duration: %s)",
		played.Format("January 02, 2006"),
		played.Format("15:04"),
		duration,
	)
}

// PlayedAt returns the match start encoded in the file name, or fallback.
// File name times are local wall-clock times.
func PlayedAt(path string, fallback time.Time) time.Time {
	base := filepath.Base(path)
	_, after, ok := strings.Cut(base, "@")
	if !ok {
		return fallback
	}

	fields := strings.Fields(after)
	if len(fields) < 2 {
		return fallback
	}
	clock, _, _ := strings.Cut(fields[1], ".")

	t, err := time.ParseInLocation(fileNameLayout, fields[0]+" "+clock, fallback.Location())
	if err != nil {
		return fallback
	}
	return t
}
