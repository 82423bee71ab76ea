// Package decoder provides the embedded replay decoder helper.
//
// The helper script is embedded at build time and extracted to a
// temporary directory on first use, so the replaycast binary only needs a
// Python interpreter with the mgz and msgpack packages installed.
package decoder

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/replaycast/types"
)

// ScriptName is the file name of the extracted helper.
const ScriptName = "mgz_frames.py"

// DefaultPython is the interpreter used when none is configured.
const DefaultPython = "python3"

//go:embed bundle/mgz_frames.py
var embeddedScript []byte

var (
	extractOnce   sync.Once
	extractedPath string
	extractErr    error
)

// EmbeddedSize returns the size of the embedded helper in bytes.
func EmbeddedSize() int {
	return len(embeddedScript)
}

// EmbeddedChecksum returns the SHA256 checksum of the embedded helper.
func EmbeddedChecksum() string {
	hash := sha256.Sum256(embeddedScript)
	return hex.EncodeToString(hash[:])
}

// IsEmbedded returns true if a helper is embedded in this binary.
func IsEmbedded() bool {
	return len(embeddedScript) > 0
}

// ExtractedPath returns the path to the extracted helper.
// Extracts on first call; subsequent calls return the cached path.
func ExtractedPath() (string, error) {
	extractOnce.Do(func() {
		extractedPath, extractErr = extractTo(os.TempDir())
	})
	return extractedPath, extractErr
}

// Command returns the argv that runs the embedded helper with python.
// An empty python selects DefaultPython.
func Command(python string) ([]string, error) {
	if python == "" {
		python = DefaultPython
	}
	path, err := ExtractedPath()
	if err != nil {
		return nil, err
	}
	return []string{python, path}, nil
}

// extractTo writes the helper under root in a version- and content-keyed
// directory, so several versions can coexist.
func extractTo(root string) (string, error) {
	if !IsEmbedded() {
		return "", errors.New("no embedded decoder available")
	}

	dirName := fmt.Sprintf("replaycast-decoder-%s-%s", types.Version, EmbeddedChecksum()[:16])
	dir := filepath.Join(root, dirName)
	scriptPath := filepath.Join(dir, ScriptName)

	if info, err := os.Stat(scriptPath); err == nil && info.Size() == int64(len(embeddedScript)) {
		return scriptPath, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create decoder directory: %w", err)
	}
	if err := os.WriteFile(scriptPath, embeddedScript, 0o755); err != nil {
		return "", fmt.Errorf("failed to write decoder: %w", err)
	}
	return scriptPath, nil
}

// Cleanup removes the extracted helper directory.
// Safe to call multiple times or if extraction never happened.
func Cleanup() error {
	if extractedPath == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Dir(extractedPath)); err != nil {
		return fmt.Errorf("failed to cleanup decoder: %w", err)
	}
	return nil
}
