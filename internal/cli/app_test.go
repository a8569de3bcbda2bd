package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/config"
	"github.com/dmitrijs2005/chatattach/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucket is a path-style S3 stand-in that ignores presign query params.
type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut atomic.Bool
	srv     *httptest.Server
}

func newBucket(t *testing.T) *bucket {
	t.Helper()
	b := &bucket{objects: map[string][]byte{}}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			if b.failPut.Load() {
				http.Error(w, "InternalError", http.StatusInternalServerError)
				return
			}
			data, _ := io.ReadAll(r.Body)
			b.mu.Lock()
			b.objects[r.URL.Path] = data
			b.mu.Unlock()
		case http.MethodGet:
			b.mu.Lock()
			data, ok := b.objects[r.URL.Path]
			b.mu.Unlock()
			if !ok {
				http.Error(w, "NoSuchKey", http.StatusNotFound)
				return
			}
			_, _ = w.Write(data)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *bucket) object(key string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects["/attachments/"+key]
}

func testConfig(t *testing.T, b *bucket) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.LoadDefaults()
	c.CacheDir = filepath.Join(dir, "cache")
	c.StagingDir = filepath.Join(dir, "staging")
	c.DatabaseDSN = ":memory:"
	c.S3Endpoint = b.srv.URL
	c.LogLevel = "error"
	return c
}

func newTestApp(t *testing.T, c *config.Config) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a, err := NewApp(context.Background(), c, &out, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a, &out
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func attachmentID(t *testing.T, a *App, msgID string) string {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	msg, ok := a.messages[msgID]
	require.True(t, ok)
	att, ok := msg.Attachment()
	require.True(t, ok)
	return att.ID
}

func TestApp_SendThenFetch(t *testing.T) {
	b := newBucket(t)
	a, out := newTestApp(t, testConfig(t, b))
	ctx := context.Background()

	src := writeFile(t, "note.txt", []byte("hello world"))
	require.NoError(t, a.Exec(ctx, []string{"send", "m1", src, "text/plain"}))
	assert.Contains(t, out.String(), "sent m1: attachment attachments/")

	id := attachmentID(t, a, "m1")
	assert.Equal(t, []byte("hello world"), b.object(id))

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"status", "m1"}))
	assert.Equal(t, "m1: loaded\n", out.String())

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"cached", "m1", id}))
	assert.Equal(t, "cached 11 bytes\n", out.String())

	require.NoError(t, a.Exec(ctx, []string{"clear-cache"}))
	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"cached", "m1", id}))
	assert.Equal(t, "not cached\n", out.String())

	dst := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, a.Exec(ctx, []string{"fetch", "m2", id, dst}))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"status", "m2"}))
	assert.Equal(t, "m2: loaded\n", out.String())

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"local", "m1"}))
	assert.Equal(t, "local 11 bytes\n", out.String())
}

func TestApp_FetchMissingObject(t *testing.T) {
	b := newBucket(t)
	a, out := newTestApp(t, testConfig(t, b))
	ctx := context.Background()

	err := a.Exec(ctx, []string{"fetch", "m1", "attachments/none"})
	require.ErrorIs(t, err, common.ErrTransport)

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"status", "m1"}))
	assert.Equal(t, "m1: error\n", out.String())

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"local", "m1", "attachments/none"}))
	assert.Equal(t, "no local binary\n", out.String())
}

func TestApp_EncryptedRoundTrip(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return []byte("correct horse"), nil }

	b := newBucket(t)
	c := testConfig(t, b)
	c.Encrypt = true
	c.DisableDiskCache = true
	a, out := newTestApp(t, c)
	ctx := context.Background()

	src := writeFile(t, "secret.txt", []byte("top secret"))
	require.NoError(t, a.Exec(ctx, []string{"send", "m1", src}))

	id := attachmentID(t, a, "m1")
	stored := b.object(id)
	require.NotEmpty(t, stored)
	assert.NotContains(t, string(stored), "top secret")

	require.NoError(t, a.Exec(ctx, []string{"clear-cache"}))
	dst := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, a.Exec(ctx, []string{"fetch", "m1", id, dst}))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("top secret"), got)
	assert.Contains(t, out.String(), "Enter encryption passphrase")
}

func TestNewApp_EmptyPassphrase(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return nil, nil }

	c := testConfig(t, newBucket(t))
	c.Encrypt = true

	_, err := NewApp(context.Background(), c, io.Discard, io.Discard)
	require.Error(t, err)
}

func TestApp_SendImageAndThumbnail(t *testing.T) {
	b := newBucket(t)
	a, out := newTestApp(t, testConfig(t, b))
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, imaging.Save(imaging.New(40, 20, color.NRGBA{R: 200, A: 255}), src))

	require.NoError(t, a.Exec(ctx, []string{"send-image", "m1", src}))
	assert.Contains(t, out.String(), "image/jpeg")
	id := attachmentID(t, a, "m1")

	dst := filepath.Join(t.TempDir(), "thumb.png")
	require.NoError(t, a.Exec(ctx, []string{"thumb", "m1", id, dst, "10", "10"}))
	assert.Contains(t, out.String(), "thumbnail 10x5")

	img, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 5), img.Bounds())
}

func TestApp_RandomMessageID(t *testing.T) {
	b := newBucket(t)
	a, out := newTestApp(t, testConfig(t, b))

	src := writeFile(t, "a.bin", []byte{1, 2, 3})
	require.NoError(t, a.Exec(context.Background(), []string{"send", "-", src}))

	a.mu.Lock()
	defer a.mu.Unlock()
	require.Len(t, a.messages, 1)
	for id := range a.messages {
		assert.Len(t, id, 16)
		assert.True(t, strings.HasPrefix(out.String(), "sent "+id))
	}
}

func TestApp_PendingAndPurge(t *testing.T) {
	b := newBucket(t)
	a, out := newTestApp(t, testConfig(t, b))
	ctx := context.Background()

	b.failPut.Store(true)
	err := a.Exec(ctx, []string{"send", "m1", writeFile(t, "a.txt", []byte("aaa"))})
	require.ErrorIs(t, err, common.ErrTransport)

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"pending"}))
	assert.True(t, strings.HasPrefix(out.String(), "m1\t"))

	b.failPut.Store(false)
	require.NoError(t, a.Exec(ctx, []string{"send", "m2", writeFile(t, "b.txt", []byte("bbb"))}))

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"purge"}))
	assert.Equal(t, "purged 1 staged binaries\n", out.String())

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"local", "m1"}))
	assert.Equal(t, "local 3 bytes\n", out.String(), "failed send keeps its staged binary")
}

func TestApp_UsageErrors(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t, newBucket(t)))
	ctx := context.Background()

	require.ErrorIs(t, a.Exec(ctx, nil), errUsage)
	for _, args := range [][]string{
		{"send", "m1"},
		{"send-image"},
		{"fetch", "m1"},
		{"thumb", "m1", "a", "out"},
		{"local"},
		{"cached", "m1"},
		{"status"},
	} {
		require.ErrorIs(t, a.Exec(ctx, args), errUsage, args)
	}

	require.Error(t, a.Exec(ctx, []string{"thumb", "m1", "a", "out", "x", "1"}))
	require.Error(t, a.Exec(ctx, []string{"bogus"}))
}

func TestApp_Help(t *testing.T) {
	a, out := newTestApp(t, testConfig(t, newBucket(t)))
	require.NoError(t, a.Exec(context.Background(), []string{"help"}))
	assert.Contains(t, out.String(), "clear-cache")
}

func TestApp_MetricsHandler(t *testing.T) {
	b := newBucket(t)
	a, _ := newTestApp(t, testConfig(t, b))

	require.NoError(t, a.Exec(context.Background(), []string{"send", "m1", writeFile(t, "a.txt", []byte("a"))}))

	rec := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatattach_uploads_total{result="success"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestApp_ServesMetrics(t *testing.T) {
	c := testConfig(t, newBucket(t))
	c.MetricsAddr = "127.0.0.1:0"
	a, _ := newTestApp(t, c)
	require.NotNil(t, a.metrics)
}

func TestNewApp_BadMetricsAddr(t *testing.T) {
	c := testConfig(t, newBucket(t))
	c.MetricsAddr = "not-an-address"

	_, err := NewApp(context.Background(), c, io.Discard, io.Discard)
	require.Error(t, err)
}

func TestApp_ForgetDropsSessionMessage(t *testing.T) {
	b := newBucket(t)
	a, out := newTestApp(t, testConfig(t, b))
	ctx := context.Background()

	src := writeFile(t, "note.txt", []byte("hello"))
	require.NoError(t, a.Exec(ctx, []string{"send", "m1", src, "text/plain"}))

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"forget", "m1"}))
	assert.Equal(t, "forgot m1\n", out.String())

	out.Reset()
	require.NoError(t, a.Exec(ctx, []string{"status", "m1"}))
	assert.Equal(t, "m1: not_loaded\n", out.String())

	a.mu.Lock()
	_, ok := a.messages["m1"]
	a.mu.Unlock()
	assert.False(t, ok)

	require.ErrorIs(t, a.Exec(ctx, []string{"forget"}), errUsage)
}

func TestNewApp_LogsKeyFingerprint(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) { return []byte("correct horse"), nil }

	c := testConfig(t, newBucket(t))
	c.Encrypt = true
	c.LogLevel = "info"

	var logs bytes.Buffer
	a, err := NewApp(context.Background(), c, io.Discard, &logs)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	want, err := cryptox.NewPassphraseCryptor([]byte("correct horse"), []byte(c.EncryptionSalt))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "key_fingerprint="+want.Fingerprint())
	assert.NotContains(t, logs.String(), "correct horse")
}
