package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultDayStartHour is the local hour a game day starts at.
const DefaultDayStartHour = 7

// DefaultExtension is the replay file extension.
const DefaultExtension = ".aoe2record"

// Entry is a replay file inside a game day.
type Entry struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Rank    int       `json:"rank"`
	Ordinal string    `json:"ordinal"`
}

// Day is the rolling 24h window replays are grouped and ranked in.
type Day struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// Window returns the game day containing now, anchored at startHour in now's
// location: [startHour today, startHour tomorrow) once startHour has passed,
// [startHour yesterday, startHour today) before it.
func Window(now time.Time, startHour int) Day {
	y, m, d := now.Date()
	start := time.Date(y, m, d, startHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = time.Date(y, m, d-1, startHour, 0, 0, 0, now.Location())
	}
	return Day{Start: start, End: time.Date(start.Year(), start.Month(), start.Day()+1, startHour, 0, 0, 0, now.Location())}
}

// Lister enumerates the replays of a game day in one directory.
type Lister struct {
	Dir       string
	Extension string
	// StartHour anchors the game day; zero selects DefaultDayStartHour.
	StartHour int
}

// List returns the replays modified inside day, oldest first.
// Equal modification times are ordered by name. Rank and Ordinal are filled.
func (l Lister) List(day Day) ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}

	var out []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !l.matches(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !day.Contains(info.ModTime()) {
			continue
		}
		out = append(out, Entry{
			Path:    filepath.Join(l.Dir, de.Name()),
			Name:    de.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.Before(out[j].ModTime)
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Rank = i + 1
		out[i].Ordinal = Ordinal(i + 1)
	}
	return out, nil
}

// Today lists the game day containing now.
func (l Lister) Today(now time.Time) ([]Entry, error) {
	return l.List(l.Day(now))
}

// Day returns the game day containing t.
func (l Lister) Day(t time.Time) Day {
	return Window(t, l.startHour())
}

// Rank returns the 1-based position of path among the replays of the game
// day containing now. A path missing from the listing (removed, or modified
// outside the window) ranks one past the last entry.
func (l Lister) Rank(path string, now time.Time) (int, error) {
	entries, err := l.Today(now)
	if err != nil {
		return 0, err
	}
	want := filepath.Clean(path)
	for _, e := range entries {
		if filepath.Clean(e.Path) == want {
			return e.Rank, nil
		}
	}
	return len(entries) + 1, nil
}

// matches reports whether name carries the replay extension.
func (l Lister) matches(name string) bool {
	ext := l.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return strings.EqualFold(filepath.Ext(name), ext)
}

func (l Lister) startHour() int {
	if l.StartHour <= 0 || l.StartHour > 23 {
		return DefaultDayStartHour
	}
	return l.StartHour
}

// Ordinal renders n with its English suffix: 1st, 2nd, 3rd, 4th, 11th, 21st.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// Listing is a rendered view of one game day.
type Listing struct {
	Dir     string    `json:"dir"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Entries []Entry   `json:"entries"`
}

// Listing lists the game day containing now.
func (l Lister) Listing(now time.Time) (*Listing, error) {
	day := l.Day(now)
	entries, err := l.List(day)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return &Listing{Dir: l.Dir, Start: day.Start, End: day.End, Entries: entries}, nil
}

// Columns implements render.Tabular.
func (l *Listing) Columns() []string {
	return []string{"rank", "name", "modified", "size"}
}

// Rows implements render.Tabular.
func (l *Listing) Rows() [][]string {
	rows := make([][]string, len(l.Entries))
	for i, e := range l.Entries {
		rows[i] = []string{
			e.Ordinal,
			e.Name,
			e.ModTime.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", e.Size),
		}
	}
	return rows
}
