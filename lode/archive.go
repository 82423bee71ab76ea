package lode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/replaycast/types"
)

// DefaultDataset is the dataset id used when none is configured.
const DefaultDataset = "replaycast"

// TranscriptFile is the name of the per-replay chat transcript.
const TranscriptFile = "chat.jsonl"

// DayLayout formats the day partition value.
const DayLayout = "2006-01-02"

// Entry is one processed replay handed to the archive.
type Entry struct {
	// Artifact is the rendered image; Artifact.Path must exist.
	Artifact *types.Artifact
	// Lines are the chat lines drawn on the image.
	Lines []types.ChatLine
	// Header is the header line drawn above the chat.
	Header string
	// Day is the start of the game day the replay belongs to.
	Day time.Time
}

// Record is the index row written to the dataset for each archived replay.
type Record struct {
	Day            string    `json:"day"`
	Replay         string    `json:"replay"`
	ReplayPath     string    `json:"replay_path"`
	Artifact       string    `json:"artifact"`
	ArtifactPath   string    `json:"artifact_path"`
	TranscriptPath string    `json:"transcript_path"`
	Header         string    `json:"header"`
	Weekday        string    `json:"weekday"`
	Rank           int       `json:"rank"`
	Lines          int       `json:"lines"`
	Degraded       bool      `json:"degraded"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// Archive copies artifacts and transcripts into a lode store and indexes them
// in a Hive-partitioned dataset (day, replay).
type Archive struct {
	dataset string
	ds      lode.Dataset
	factory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error

	now func() time.Time
}

// NewFSArchive creates an archive rooted at a local directory.
func NewFSArchive(dataset, root string) (*Archive, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, wrap("init", root, err)
	}
	return NewArchive(dataset, lode.NewFSFactory(root))
}

// NewArchive creates an archive over an arbitrary store factory.
// Use lode.NewMemoryFactory() for testing.
func NewArchive(dataset string, factory lode.StoreFactory) (*Archive, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("day", "replay"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, wrap("init", dataset, err)
	}
	return &Archive{
		dataset: dataset,
		ds:      ds,
		factory: factory,
		now:     time.Now,
	}, nil
}

// Dataset returns the dataset id.
func (a *Archive) Dataset() string {
	return a.dataset
}

// Put stores the image, the chat transcript and an index record.
// Files are written before the record so a record never points at a missing file.
func (a *Archive) Put(ctx context.Context, e Entry) (Record, error) {
	if e.Artifact == nil {
		return Record{}, errors.New("archive: nil artifact")
	}
	store, err := a.getOrCreateStore()
	if err != nil {
		return Record{}, wrap("init", a.dataset, err)
	}

	day := e.Day.Format(DayLayout)
	replayName := PartitionValue(strings.TrimSuffix(filepath.Base(e.Artifact.ReplayPath), filepath.Ext(e.Artifact.ReplayPath)))

	imagePath := FilePath(a.dataset, day, replayName, e.Artifact.Name)
	img, err := os.Open(e.Artifact.Path)
	if err != nil {
		return Record{}, wrap("read", e.Artifact.Path, err)
	}
	err = store.Put(ctx, imagePath, img)
	_ = img.Close()
	if err != nil {
		return Record{}, wrap("put", imagePath, err)
	}

	transcript, err := encodeTranscript(e.Lines)
	if err != nil {
		return Record{}, fmt.Errorf("encode transcript: %w", err)
	}
	transcriptPath := FilePath(a.dataset, day, replayName, TranscriptFile)
	if err := store.Put(ctx, transcriptPath, bytes.NewReader(transcript)); err != nil {
		return Record{}, wrap("put", transcriptPath, err)
	}

	rec := Record{
		Day:            day,
		Replay:         replayName,
		ReplayPath:     e.Artifact.ReplayPath,
		Artifact:       e.Artifact.Name,
		ArtifactPath:   imagePath,
		TranscriptPath: transcriptPath,
		Header:         e.Header,
		Weekday:        e.Artifact.Weekday.String(),
		Rank:           e.Artifact.Rank,
		Lines:          len(e.Lines),
		Degraded:       e.Artifact.Degraded,
		ArchivedAt:     a.now().UTC(),
	}
	row, err := rec.fields()
	if err != nil {
		return Record{}, err
	}
	if _, err := a.ds.Write(ctx, []any{row}, lode.Metadata{}); err != nil {
		return Record{}, wrap("write", a.dataset, err)
	}
	return rec, nil
}

// Records returns the index rows for a day (YYYY-MM-DD) in write order.
// An empty day returns every row.
func (a *Archive) Records(ctx context.Context, day string) ([]Record, error) {
	snapshots, err := a.ds.Snapshots(ctx)
	if err != nil {
		return nil, wrap("list", a.dataset, err)
	}

	var out []Record
	for _, snap := range snapshots {
		if day != "" && !snapshotHasDay(snap, day) {
			continue
		}
		data, err := a.ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrap("read", fmt.Sprintf("%s/snapshot/%s", a.dataset, snap.ID), err)
		}
		for _, item := range data {
			rec, ok := decodeRecord(item)
			if !ok || (day != "" && rec.Day != day) {
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get reads back a file written by Put.
func (a *Archive) Get(ctx context.Context, path string) ([]byte, error) {
	store, err := a.getOrCreateStore()
	if err != nil {
		return nil, wrap("init", a.dataset, err)
	}
	rc, err := store.Get(ctx, path)
	if err != nil {
		return nil, wrap("get", path, err)
	}
	defer func() { _ = rc.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, wrap("get", path, err)
	}
	return buf.Bytes(), nil
}

// getOrCreateStore lazily initializes the Store from the factory.
func (a *Archive) getOrCreateStore() (lode.Store, error) {
	a.storeOnce.Do(func() {
		a.store, a.storeErr = a.factory()
	})
	return a.store, a.storeErr
}

// FilePath computes the Hive-partitioned path of an archived file.
// Format: datasets/<dataset>/partitions/day=<d>/replay=<r>/files/<file>
func FilePath(dataset, day, replay, file string) string {
	return fmt.Sprintf("datasets/%s/partitions/day=%s/replay=%s/files/%s",
		dataset, day, replay, file)
}

// PartitionValue makes s safe for use as a partition value.
// Characters outside [A-Za-z0-9._-] become underscores.
func PartitionValue(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

func encodeTranscript(lines []types.ChatLine) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// fields converts the record into the map form the JSONL codec partitions on.
func (r Record) fields() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return m, nil
}

func decodeRecord(item any) (Record, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return Record{}, false
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// snapshotHasDay is a coarse manifest pre-filter; record fields are authoritative.
func snapshotHasDay(snap *lode.Snapshot, day string) bool {
	needle := "day=" + day + "/"
	for _, f := range snap.Manifest.Files {
		if strings.Contains(f.Path, needle) {
			return true
		}
	}
	return false
}
