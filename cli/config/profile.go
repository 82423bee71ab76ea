package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SavegameDir is the replay folder inside a profile directory.
const SavegameDir = "savegame"

// minProfileIDLen excludes short numeric folders that are not profile ids.
const minProfileIDLen = 6

var (
	// ErrNoProfile indicates the base directory holds no profile directories.
	ErrNoProfile = errors.New("no profile directory found")
	// ErrNoSavegame indicates none of several profiles has a savegame folder.
	ErrNoSavegame = errors.New("no savegame directory found in any profile; set watch.profile_id")
)

// ResolveWatchDir returns the directory to watch.
//
// An explicit Dir wins. Otherwise profiles are numeric directories under
// BaseDir with names longer than five characters: a pinned ProfileID is used
// as is, a single profile is used as is, and among several the one whose
// savegame folder was modified most recently is chosen.
func ResolveWatchDir(w WatchConfig) (string, error) {
	if w.Dir != "" {
		return ExpandHome(w.Dir)
	}
	base, err := ExpandHome(w.BaseDir)
	if err != nil {
		return "", err
	}
	if w.ProfileID != "" {
		return filepath.Join(base, w.ProfileID, SavegameDir), nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("read profile base %s: %w", base, err)
	}

	var profiles []string
	for _, e := range entries {
		if e.IsDir() && isProfileID(e.Name()) {
			profiles = append(profiles, e.Name())
		}
	}

	switch len(profiles) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoProfile, base)
	case 1:
		return filepath.Join(base, profiles[0], SavegameDir), nil
	}

	var (
		best     string
		bestTime time.Time
	)
	// ReadDir sorts by name, so equal times resolve to the lowest id.
	for _, id := range profiles {
		info, err := os.Stat(filepath.Join(base, id, SavegameDir))
		if err != nil || !info.IsDir() {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = id, info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w (base %s)", ErrNoSavegame, base)
	}
	return filepath.Join(base, best, SavegameDir), nil
}

func isProfileID(name string) bool {
	if len(name) < minProfileIDLen {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
