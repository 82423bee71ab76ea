package lode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/replaycast/types"
)

// FailingStore is a lode.Store that returns configurable errors.
type FailingStore struct {
	PutErr    error
	GetErr    error
	ExistsErr error
	ListErr   error
	DeleteErr error

	PutCalls int
	PutPaths []string
}

func (s *FailingStore) Put(_ context.Context, path string, _ io.Reader) error {
	s.PutCalls++
	s.PutPaths = append(s.PutPaths, path)
	return s.PutErr
}

func (s *FailingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, s.GetErr
}

func (s *FailingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, s.ExistsErr
}

func (s *FailingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, s.ListErr
}

func (s *FailingStore) Delete(_ context.Context, _ string) error {
	return s.DeleteErr
}

func (s *FailingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *FailingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*FailingStore)(nil)

func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// writeArtifact creates a fake rendered image and returns its entry.
func writeArtifact(t *testing.T, replay string, rank int, day time.Time) Entry {
	t.Helper()
	dir := t.TempDir()
	name := day.Weekday().String() + " 1st game.jpg"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("jpeg:"+replay), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return Entry{
		Artifact: &types.Artifact{
			Path:       path,
			Name:       name,
			ReplayPath: filepath.Join("/replays", replay),
			Weekday:    day.Weekday(),
			Rank:       rank,
			Lines:      2,
		},
		Lines: []types.ChatLine{
			{Timestamp: "00:00:05", Player: "Alice", Color: types.ColorBlue, Message: "gl hf"},
			{Timestamp: "00:01:10", Player: "Bob", Color: types.ColorRed, Message: "you too"},
		},
		Header: "September 22, 2025 at 18:51 (Duration: 01:00:00)",
		Day:    day,
	}
}

func TestArchive_PutAndRecords(t *testing.T) {
	store := lode.NewMemory()
	a, err := NewArchive("", sharedFactory(store))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	a.now = func() time.Time { return time.Date(2025, 9, 22, 20, 0, 0, 0, time.UTC) }
	if a.Dataset() != DefaultDataset {
		t.Errorf("Dataset() = %q, want %q", a.Dataset(), DefaultDataset)
	}

	day := time.Date(2025, 9, 22, 7, 0, 0, 0, time.Local)
	entry := writeArtifact(t, "MP Replay v101.102 @2025.09.22 185158 (1).aoe2record", 1, day)

	rec, err := a.Put(t.Context(), entry)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.Day != "2025-09-22" {
		t.Errorf("Day = %q", rec.Day)
	}
	if rec.Replay != "MP_Replay_v101.102__2025.09.22_185158__1_" {
		t.Errorf("Replay = %q", rec.Replay)
	}
	wantImage := FilePath(DefaultDataset, "2025-09-22", rec.Replay, entry.Artifact.Name)
	if rec.ArtifactPath != wantImage {
		t.Errorf("ArtifactPath = %q, want %q", rec.ArtifactPath, wantImage)
	}

	img, err := a.Get(t.Context(), rec.ArtifactPath)
	if err != nil {
		t.Fatalf("Get image: %v", err)
	}
	if string(img) != "jpeg:MP Replay v101.102 @2025.09.22 185158 (1).aoe2record" {
		t.Errorf("image bytes = %q", img)
	}

	transcript, err := a.Get(t.Context(), rec.TranscriptPath)
	if err != nil {
		t.Fatalf("Get transcript: %v", err)
	}
	var lines []types.ChatLine
	sc := bufio.NewScanner(bytes.NewReader(transcript))
	for sc.Scan() {
		var l types.ChatLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("transcript line: %v", err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 2 || lines[1].Player != "Bob" || lines[1].Color != types.ColorRed {
		t.Errorf("transcript = %+v", lines)
	}

	records, err := a.Records(t.Context(), "2025-09-22")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Records returned %d, want 1", len(records))
	}
	got := records[0]
	if got.Rank != 1 || got.Lines != 2 || got.Weekday != "Monday" || got.Header != entry.Header {
		t.Errorf("record = %+v", got)
	}
	if !got.ArchivedAt.Equal(time.Date(2025, 9, 22, 20, 0, 0, 0, time.UTC)) {
		t.Errorf("ArchivedAt = %v", got.ArchivedAt)
	}
}

func TestArchive_RecordsFilterByDay(t *testing.T) {
	a, err := NewArchive("replaycast", sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	monday := time.Date(2025, 9, 22, 7, 0, 0, 0, time.Local)
	tuesday := monday.AddDate(0, 0, 1)
	for i, e := range []Entry{
		writeArtifact(t, "a.aoe2record", 1, monday),
		writeArtifact(t, "b.aoe2record", 2, monday),
		writeArtifact(t, "c.aoe2record", 1, tuesday),
	} {
		if _, err := a.Put(t.Context(), e); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	mon, err := a.Records(t.Context(), "2025-09-22")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(mon) != 2 {
		t.Fatalf("monday records = %d, want 2", len(mon))
	}
	for _, r := range mon {
		if r.Day != "2025-09-22" {
			t.Errorf("record day = %q", r.Day)
		}
	}

	all, err := a.Records(t.Context(), "")
	if err != nil {
		t.Fatalf("Records(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all records = %d, want 3", len(all))
	}
}

func TestArchive_PutClassifiesStoreErrors(t *testing.T) {
	store := &FailingStore{
		PutErr: &os.PathError{Op: "open", Path: "/archive", Err: fs.ErrPermission},
	}
	a, err := NewArchive("replaycast", sharedFactory(store))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	entry := writeArtifact(t, "a.aoe2record", 1, time.Date(2025, 9, 22, 7, 0, 0, 0, time.Local))
	_, err = a.Put(t.Context(), entry)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "put" {
		t.Errorf("StorageError = %+v", se)
	}
	if store.PutCalls != 1 {
		t.Errorf("PutCalls = %d, want 1 (stop after image failure)", store.PutCalls)
	}
}

func TestArchive_FactoryFailure(t *testing.T) {
	factory := func() (lode.Store, error) {
		return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
	}
	a, err := NewArchive("replaycast", factory)
	if err != nil {
		// Some dataset implementations resolve the store eagerly.
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("NewArchive err = %v, want ErrNetwork", err)
		}
		return
	}

	entry := writeArtifact(t, "a.aoe2record", 1, time.Now())
	if _, err := a.Put(t.Context(), entry); !errors.Is(err, ErrNetwork) {
		t.Errorf("Put err = %v, want ErrNetwork", err)
	}
}

func TestArchive_PutMissingImage(t *testing.T) {
	a, err := NewArchive("replaycast", sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	entry := writeArtifact(t, "a.aoe2record", 1, time.Now())
	entry.Artifact.Path = filepath.Join(t.TempDir(), "gone.jpg")

	if _, err := a.Put(t.Context(), entry); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := a.Put(t.Context(), Entry{}); err == nil {
		t.Error("expected error for nil artifact")
	}
}

func TestNewFSArchive_WritesFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")
	a, err := NewFSArchive("replaycast", root)
	if err != nil {
		t.Fatalf("NewFSArchive: %v", err)
	}

	entry := writeArtifact(t, "game.aoe2record", 1, time.Date(2025, 9, 22, 7, 0, 0, 0, time.Local))
	rec, err := a.Put(t.Context(), entry)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rec.ArtifactPath)))
	if err != nil {
		t.Fatalf("read archived image: %v", err)
	}
	if string(data) != "jpeg:game.aoe2record" {
		t.Errorf("archived image = %q", data)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rec.TranscriptPath))); err != nil {
		t.Errorf("transcript missing: %v", err)
	}
}

func TestFilePath(t *testing.T) {
	got := FilePath("replaycast", "2025-09-22", "game", "Monday 1st game.jpg")
	want := "datasets/replaycast/partitions/day=2025-09-22/replay=game/files/Monday 1st game.jpg"
	if got != want {
		t.Errorf("FilePath = %q, want %q", got, want)
	}
}

func TestPartitionValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"game", "game"},
		{"MP Replay (2)", "MP_Replay__2_"},
		{"a/b=c", "a_b_c"},
		{"v1.2-final_x", "v1.2-final_x"},
		{"", "_"},
	}
	for _, tt := range tests {
		if got := PartitionValue(tt.in); got != tt.want {
			t.Errorf("PartitionValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestS3Config(t *testing.T) {
	if err := (&S3Config{}).Validate(); err == nil {
		t.Error("expected error for missing bucket")
	}
	if err := (&S3Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if _, err := NewS3Factory(t.Context(), S3Config{}); err == nil {
		t.Error("NewS3Factory accepted empty bucket")
	}

	tests := []struct {
		in, bucket, prefix string
	}{
		{"replays", "replays", ""},
		{"replays/aoe2/archive", "replays", "aoe2/archive"},
	}
	for _, tt := range tests {
		b, p := ParseS3Path(tt.in)
		if b != tt.bucket || p != tt.prefix {
			t.Errorf("ParseS3Path(%q) = (%q, %q)", tt.in, b, p)
		}
	}
}
