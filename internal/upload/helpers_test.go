package upload

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/videoproc/pkg/processor"
)

// fakeRunner writes a small output file and replays canned output.
type fakeRunner struct {
	mu       sync.Mutex
	lines    []string
	exitCode int
	err      error
	calls    [][2]string
}

func (f *fakeRunner) Run(_ context.Context, src, dst string) (processor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, [2]string{src, dst})
	f.mu.Unlock()
	if f.err != nil {
		return processor.Result{}, f.err
	}
	if f.exitCode == 0 {
		data, err := os.ReadFile(src)
		if err != nil {
			return processor.Result{ExitCode: 1, Lines: []string{err.Error()}}, nil
		}
		if err := os.WriteFile(dst, append([]byte("processed:"), data...), 0o644); err != nil {
			return processor.Result{ExitCode: 1, Lines: []string{err.Error()}}, nil
		}
	}
	return processor.Result{Lines: f.lines, ExitCode: f.exitCode}, nil
}

type fakeArchive struct {
	mu     sync.Mutex
	keys   []string
	paths  []string
	err    error
	closed bool
}

func (f *fakeArchive) PutFile(_ context.Context, key, path, _ string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.paths = append(f.paths, path)
	return nil
}

func (f *fakeArchive) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	keys    []string
	events  []ProcessingEvent
	headers []map[string]string
	closed  bool
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, value any, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.events = append(f.events, value.(ProcessingEvent))
	f.headers = append(f.headers, headers)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fixture struct {
	root         string
	uploadDir    string
	processedDir string
	tempDir      string
	runner       *fakeRunner
	archive      *fakeArchive
	events       *fakePublisher
	service      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:         root,
		uploadDir:    filepath.Join(root, "uploads"),
		processedDir: filepath.Join(root, "processed"),
		tempDir:      filepath.Join(root, "tmp"),
		runner:       &fakeRunner{lines: []string{"done"}},
		archive:      &fakeArchive{},
		events:       &fakePublisher{},
	}
	for _, d := range []string{f.uploadDir, f.processedDir, f.tempDir} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	f.service = NewService(Params{
		UploadDir:    f.uploadDir,
		ProcessedDir: f.processedDir,
		Runner:       f.runner,
		Archive:      f.archive,
		Events:       f.events,
	})
	return f
}

func (f *fixture) handler(cfg HTTPConfig) http.Handler {
	if cfg.TempDir == "" {
		cfg.TempDir = f.tempDir
	}
	cfg.ProcessedDir = f.processedDir
	return NewHTTPHandler(f.service, nil, cfg).Router()
}

// spool writes content into the fixture temp dir as the HTTP layer would.
func (f *fixture) spool(t *testing.T, content string) string {
	t.Helper()
	tmp, err := os.CreateTemp(f.tempDir, "upload-*")
	require.NoError(t, err)
	_, err = tmp.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())
	return tmp.Name()
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUpload(t *testing.T, h http.Handler, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
