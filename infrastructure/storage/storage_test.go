package storage

import (
	"bytes"
	"catalog_scraper/domain/entities"
	"catalog_scraper/infrastructure/browser/htmlview"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	return logger, &buf
}

func newView(t *testing.T) *htmlview.View {
	t.Helper()
	v, err := htmlview.New("<html><body></body></html>")
	require.NoError(t, err)
	return v
}

// replayedEntries pulls the entry map back out of a replay script
func replayedEntries(t *testing.T, script string) map[string]string {
	t.Helper()
	i := strings.LastIndex(script, "})(")
	require.NotEqual(t, -1, i)
	payload := strings.TrimSuffix(script[i+3:], ")")
	out := map[string]string{}
	require.NoError(t, json.Unmarshal([]byte(payload), &out))
	return out
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	logger, _ := testLogger()
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), "hiring.idenhq.com", logger)

	live := newView(t)
	live.Cookies = []entities.Cookie{
		{Name: "sid", Value: "abc", Domain: "hiring.idenhq.com", Path: "/", Expires: 1893456000, HttpOnly: true, Secure: true, SameSite: "Lax"},
		{Name: "consent", Value: "yes", Domain: ".idenhq.com", Path: "/", Expires: -1},
	}
	live.Origins = []entities.Origin{{Origin: "https://hiring.idenhq.com", LocalStorage: []entities.NameValue{{Name: "theme", Value: "dark"}}}}
	live.Storage = map[string]string{
		"auth_token": `{"jwt":"e.y.J"}`,
		"quote":      `it's "tricky" </script>`,
	}

	store.Save(ctx, live)

	fresh := newView(t)
	store.Restore(ctx, fresh)

	if diff := cmp.Diff(live.Cookies, fresh.Cookies); diff != "" {
		t.Fatalf("cookies mismatch (-saved +restored):\n%s", diff)
	}
	require.Len(t, fresh.InitScripts, 1)
	require.Contains(t, fresh.InitScripts[0], `window.location.hostname === "hiring.idenhq.com"`)
	require.Equal(t, live.Storage, replayedEntries(t, fresh.InitScripts[0]))
}

func TestSessionFileLayout(t *testing.T) {
	logger, _ := testLogger()
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewSessionStore(path, "hiring.idenhq.com", logger)

	require.NoError(t, store.Store(entities.SessionSnapshot{
		SessionStorage: map[string]string{"k": "v"},
		State:          entities.StorageState{Cookies: []entities.Cookie{{Name: "sid", Value: "1"}}},
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "session_storage")
	require.Contains(t, doc, "storage_state")

	var storage string
	require.NoError(t, json.Unmarshal(doc["session_storage"], &storage))
	require.JSONEq(t, `{"k":"v"}`, storage)
	require.Contains(t, string(raw), "\n    \"")
}

func TestSessionSaveOverwrites(t *testing.T) {
	logger, _ := testLogger()
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), "example.com", logger)

	require.NoError(t, store.Store(entities.SessionSnapshot{SessionStorage: map[string]string{"old": "1"}}))
	require.NoError(t, store.Store(entities.SessionSnapshot{SessionStorage: map[string]string{"new": "2"}}))

	snapshot, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"new": "2"}, snapshot.SessionStorage)
}

func TestRestoreWithoutFileIsNoop(t *testing.T) {
	logger, buf := testLogger()
	store := NewSessionStore(filepath.Join(t.TempDir(), "missing.json"), "example.com", logger)

	view := newView(t)
	store.Restore(context.Background(), view)

	require.Empty(t, view.Cookies)
	require.Empty(t, view.InitScripts)
	require.Contains(t, buf.String(), "no saved session found")
}

func TestRestoreCorruptFileContinues(t *testing.T) {
	logger, buf := testLogger()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session_storage": 42`), 0600))
	store := NewSessionStore(path, "example.com", logger)

	view := newView(t)
	store.Restore(context.Background(), view)

	require.Empty(t, view.Cookies)
	require.Empty(t, view.InitScripts)
	require.Contains(t, buf.String(), "continuing without it")

	_, err := store.Load()
	require.ErrorIs(t, err, entities.ErrSessionIO)
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	logger, buf := testLogger()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	// the parent of the session path is a regular file
	store := NewSessionStore(filepath.Join(blocker, "session.json"), "example.com", logger)
	store.Save(context.Background(), newView(t))

	require.Contains(t, buf.String(), "failed to save session")
}

func TestRestoreWithoutSessionStorageSkipsScript(t *testing.T) {
	logger, _ := testLogger()
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), "example.com", logger)
	require.NoError(t, store.Store(entities.SessionSnapshot{
		State: entities.StorageState{Cookies: []entities.Cookie{{Name: "sid", Value: "1"}}},
	}))

	view := newView(t)
	store.Restore(context.Background(), view)
	require.Len(t, view.Cookies, 1)
	require.Empty(t, view.InitScripts)
}

func TestRestoreEmptySessionIsSkipped(t *testing.T) {
	logger, buf := testLogger()
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), "example.com", logger)
	require.NoError(t, store.Store(entities.SessionSnapshot{}))

	snapshot, err := store.Load()
	require.NoError(t, err)
	require.True(t, snapshot.IsEmpty())

	view := newView(t)
	store.Restore(context.Background(), view)
	require.Empty(t, view.Cookies)
	require.Empty(t, view.InitScripts)
	require.Contains(t, buf.String(), "nothing to restore")
	require.NotContains(t, buf.String(), "session loaded")
}

func TestWriteRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "product_data.json")
	sink := JSONFile{Path: path}

	records := []entities.ProductRecord{
		{Name: "Velvet Lip", ID: "48213", Shade: "Rose", Details: "Matte", Guarantee: "1 year"},
		{Name: "Blank"},
	}
	require.NoError(t, sink.WriteRecords(ctx, records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"Product Name": "Velvet Lip"`)

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Equal(t, records, got)

	require.NoError(t, sink.WriteRecords(ctx, nil))
	got, err = ReadRecords(path)
	require.NoError(t, err)
	require.Empty(t, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	first := []entities.ProductRecord{
		{Name: "A", ID: "1"},
		{Name: "B", ID: "2", Shade: "Red"},
	}
	runID, err := archive.WriteRun(ctx, first)
	require.NoError(t, err)
	require.NoError(t, archive.WriteRecords(ctx, first[:1]))

	got, err := archive.Run(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, first, got)

	n, err := archive.RunCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
