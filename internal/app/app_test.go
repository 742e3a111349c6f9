package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
	"github.com/aubreyosenda/dam-sdk-go/internal/checkpoint"
	"github.com/aubreyosenda/dam-sdk-go/internal/config"
	"github.com/aubreyosenda/dam-sdk-go/internal/metrics"
	"github.com/aubreyosenda/dam-sdk-go/internal/source"
	"github.com/aubreyosenda/dam-sdk-go/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The prometheus default registry rejects duplicate registration, so
// every runner in this package's tests shares one collector.
var testCollector = metrics.New()

type fakeService struct {
	mu      sync.Mutex
	uploads []string
	fail    map[string]error
}

func newFakeService() *fakeService {
	return &fakeService{fail: map[string]error{}}
}

func (f *fakeService) record(name string) error {
	f.mu.Lock()
	f.uploads = append(f.uploads, name)
	f.mu.Unlock()
	return f.fail[name]
}

func (f *fakeService) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

func (f *fakeService) UploadFile(ctx context.Context, path string, opts *damsdk.UploadOptions) (*damsdk.File, error) {
	name := filepath.Base(path)
	if err := f.record(name); err != nil {
		return nil, err
	}
	return &damsdk.File{ID: "id-" + name, Filename: name}, nil
}

func (f *fakeService) UploadReader(ctx context.Context, rd io.Reader, name string, opts *damsdk.UploadOptions) (*damsdk.File, error) {
	if _, err := io.Copy(io.Discard, rd); err != nil {
		return nil, err
	}
	if err := f.record(name); err != nil {
		return nil, err
	}
	return &damsdk.File{ID: "id-" + name, Filename: name}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		API: config.APIConfig{URL: "http://localhost:55055", KeyID: "id", KeySecret: "secret"},
		Upload: config.UploadConfig{
			Concurrency:    2,
			MaxRetries:     0,
			RetryBackoffMs: 1,
			MaxBackoffMs:   10,
			Checkpoint:     filepath.Join(t.TempDir(), "checkpoint.db"),
			SkipExisting:   true,
		},
		LogLevel: "info",
	}
}

func newTestRunner(t *testing.T, cfg *config.Config, svc upload.Service) *Runner {
	t.Helper()
	store, err := checkpoint.NewSQLiteStore(cfg.Upload.Checkpoint)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &Runner{
		cfg:        cfg,
		logger:     zap.NewNop(),
		svc:        svc,
		checkpoint: store,
		metrics:    testCollector,
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestRunLocalUploadsTree(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt":        "aaa",
		"b.txt":        "bbbb",
		"nested/c.txt": "cc",
	})

	svc := newFakeService()
	runner := newTestRunner(t, testConfig(t), svc)

	require.NoError(t, runner.RunLocal(context.Background(), []string{dir}))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt"}, svc.uploaded())

	record, err := runner.checkpoint.GetUpload(filepath.Join(dir, "a.txt"), "")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, checkpoint.StatusCompleted, record.Status)
	assert.Equal(t, "id-a.txt", record.FileID)
	assert.Equal(t, 1, record.Attempts)
}

func TestRunLocalSkipsCompleted(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "aaa", "b.txt": "bbb"})
	cfg := testConfig(t)

	first := newFakeService()
	require.NoError(t, newTestRunner(t, cfg, first).RunLocal(context.Background(), []string{dir}))
	require.Len(t, first.uploaded(), 2)

	second := newFakeService()
	require.NoError(t, newTestRunner(t, cfg, second).RunLocal(context.Background(), []string{dir}))
	assert.Empty(t, second.uploaded(), "completed uploads must not be re-sent")
}

func TestRunLocalRetriesFailedOnNextRun(t *testing.T) {
	dir := writeTree(t, map[string]string{"bad.txt": "x", "good.txt": "y"})
	cfg := testConfig(t)

	first := newFakeService()
	first.fail["bad.txt"] = damsdk.NewAPIError(422, "unsupported", "", 0)
	err := newTestRunner(t, cfg, first).RunLocal(context.Background(), []string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 uploads failed")

	record, getErr := newTestRunner(t, cfg, first).checkpoint.GetUpload(filepath.Join(dir, "bad.txt"), "")
	require.NoError(t, getErr)
	require.NotNil(t, record)
	assert.Equal(t, checkpoint.StatusFailed, record.Status)
	assert.Contains(t, record.LastError, "unsupported")

	second := newFakeService()
	require.NoError(t, newTestRunner(t, cfg, second).RunLocal(context.Background(), []string{dir}))
	assert.Equal(t, []string{"bad.txt"}, second.uploaded(), "only the failed upload is retried")
}

func TestRunLocalDryRun(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "aaa"})
	cfg := testConfig(t)
	cfg.Upload.DryRun = true

	svc := newFakeService()
	runner := newTestRunner(t, cfg, svc)

	require.NoError(t, runner.RunLocal(context.Background(), []string{dir}))
	assert.Empty(t, svc.uploaded())

	record, err := runner.checkpoint.GetUpload(filepath.Join(dir, "a.txt"), "")
	require.NoError(t, err)
	assert.Nil(t, record, "dry run must not touch the checkpoint")
}

func TestRunLocalMissingPath(t *testing.T) {
	svc := newFakeService()
	runner := newTestRunner(t, testConfig(t), svc)

	err := runner.RunLocal(context.Background(), []string{filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
	assert.Empty(t, svc.uploaded())
}

type fakeSource struct {
	objects map[string]string
}

func (f *fakeSource) GetObject(ctx context.Context, bucket, key string) (source.Object, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &fakeObject{Reader: strings.NewReader(content), key: key, size: int64(len(content))}, nil
}

func (f *fakeSource) HeadObject(ctx context.Context, bucket, key string) (source.ObjectInfo, error) {
	content, ok := f.objects[key]
	if !ok {
		return source.ObjectInfo{}, os.ErrNotExist
	}
	return source.ObjectInfo{Key: key, Size: int64(len(content))}, nil
}

func (f *fakeSource) ListObjects(ctx context.Context, bucket, prefix string) (<-chan source.ObjectInfo, <-chan error) {
	objCh := make(chan source.ObjectInfo)
	errCh := make(chan error, 1)
	go func() {
		defer close(objCh)
		defer close(errCh)
		for key, content := range f.objects {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			select {
			case objCh <- source.ObjectInfo{Key: key, Size: int64(len(content)), ETag: "etag-" + key, LastModified: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return objCh, errCh
}

type fakeObject struct {
	*strings.Reader
	key  string
	size int64
}

func (o *fakeObject) Close() error { return nil }

func (o *fakeObject) Stat() (source.ObjectInfo, error) {
	return source.ObjectInfo{Key: o.key, Size: o.size}, nil
}

func TestImportFromSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.S3Config{
		Endpoint:  "minio.local:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "assets",
		Prefix:    "photos/",
	}

	svc := newFakeService()
	runner := newTestRunner(t, cfg, svc)

	src := &fakeSource{objects: map[string]string{
		"photos/cat.jpg":   "cat bytes",
		"photos/dog.jpg":   "dog bytes",
		"documents/la.pdf": "ignored",
	}}

	require.NoError(t, runner.importFrom(context.Background(), src))
	assert.ElementsMatch(t, []string{"cat.jpg", "dog.jpg"}, svc.uploaded())

	record, err := runner.checkpoint.GetUpload("s3://assets/photos/cat.jpg", "")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, checkpoint.StatusCompleted, record.Status)
	assert.Equal(t, int64(len("cat bytes")), record.Size)
}

func TestImportSingleObject(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.S3Config{
		Endpoint:  "minio.local:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "assets",
		Object:    "photos/cat.jpg",
	}

	svc := newFakeService()
	runner := newTestRunner(t, cfg, svc)

	src := &fakeSource{objects: map[string]string{
		"photos/cat.jpg": "cat bytes",
		"photos/dog.jpg": "not requested",
	}}

	require.NoError(t, runner.importFrom(context.Background(), src))
	assert.Equal(t, []string{"cat.jpg"}, svc.uploaded())
}

func TestImportSingleObjectMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.S3Config{
		Endpoint:  "minio.local:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "assets",
		Object:    "photos/absent.jpg",
	}

	runner := newTestRunner(t, cfg, newFakeService())

	err := runner.importFrom(context.Background(), &fakeSource{objects: map[string]string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photos/absent.jpg")
}

func TestImportReportsListingError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.S3Config{
		Endpoint:  "minio.local:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "assets",
	}

	runner := newTestRunner(t, cfg, newFakeService())

	err := runner.importFrom(context.Background(), &failingSource{fmt.Errorf("access denied")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

// failingSource fails every listing after yielding no objects.
type failingSource struct {
	err error
}

func (f *failingSource) GetObject(ctx context.Context, bucket, key string) (source.Object, error) {
	return nil, f.err
}

func (f *failingSource) HeadObject(ctx context.Context, bucket, key string) (source.ObjectInfo, error) {
	return source.ObjectInfo{}, f.err
}

func (f *failingSource) ListObjects(ctx context.Context, bucket, prefix string) (<-chan source.ObjectInfo, <-chan error) {
	objCh := make(chan source.ObjectInfo)
	errCh := make(chan error, 1)
	go func() {
		defer close(objCh)
		defer close(errCh)
		errCh <- f.err
	}()
	return objCh, errCh
}

func TestImportValidatesSourceConfig(t *testing.T) {
	runner := newTestRunner(t, testConfig(t), newFakeService())

	err := runner.RunImport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source endpoint is required")
}
