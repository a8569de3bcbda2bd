package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// objectServer is a tiny in-memory stand-in for an S3 bucket behind
// presigned URLs.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	block   chan struct{}
	srv     *httptest.Server
}

func newObjectServer(t *testing.T) *objectServer {
	t.Helper()
	return startObjectServer(t, nil)
}

// newBlockingObjectServer holds every PUT until block is closed.
func newBlockingObjectServer(t *testing.T, block chan struct{}) *objectServer {
	t.Helper()
	return startObjectServer(t, block)
}

func startObjectServer(t *testing.T, block chan struct{}) *objectServer {
	o := &objectServer{objects: map[string][]byte{}, types: map[string]string{}, block: block}
	o.srv = httptest.NewServer(http.HandlerFunc(o.handle))
	t.Cleanup(o.srv.Close)
	return o
}

func (o *objectServer) contentType(key string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.types[key]
}

func (o *objectServer) handle(w http.ResponseWriter, r *http.Request) {
	if o.block != nil && r.Method == http.MethodPut {
		select {
		case <-o.block:
		case <-r.Context().Done():
			return
		}
	}
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		o.mu.Lock()
		o.objects[key] = b
		o.types[key] = r.Header.Get("Content-Type")
		o.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		o.mu.Lock()
		b, ok := o.objects[key]
		o.mu.Unlock()
		if !ok {
			http.Error(w, "NoSuchKey", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type fakePresigner struct {
	base   string
	putErr error
	getErr error
}

func (f *fakePresigner) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	return f.base + "/" + key, f.putErr
}

func (f *fakePresigner) PresignGet(ctx context.Context, key string) (string, error) {
	return f.base + "/" + key, f.getErr
}

func newTestEngine(t *testing.T, o *objectServer, opts S3Options) *S3Engine {
	t.Helper()
	if opts.Presigner == nil {
		opts.Presigner = &fakePresigner{base: o.srv.URL}
	}
	opts.HTTPClient = o.srv.Client()
	return NewS3Engine(opts)
}

func TestS3Engine_UploadDownloadRoundTrip(t *testing.T) {
	o := newObjectServer(t)
	e := newTestEngine(t, o, S3Options{KeyFunc: func() string { return "attachments/img-1" }})

	payload := bytes.Repeat([]byte{0xAB}, 256*1024)

	var up []float64
	ref, err := e.Upload(context.Background(), payload, "image/jpeg", func(p float64) { up = append(up, p) })
	require.NoError(t, err)
	assert.Equal(t, "attachments/img-1", ref)
	assert.Equal(t, "image/jpeg", o.contentType(ref))

	require.NotEmpty(t, up)
	assert.Equal(t, 0.0, up[0])
	assert.Equal(t, 1.0, up[len(up)-1])
	ones := 0
	for i, p := range up {
		if p == 1 {
			ones++
		}
		if i > 0 {
			assert.GreaterOrEqual(t, p, up[i-1])
		}
	}
	assert.Equal(t, 1, ones)

	var down []float64
	got, err := e.Download(context.Background(), ref, func(p float64) { down = append(down, p) })
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))
	assert.Equal(t, 0.0, down[0])
	assert.Equal(t, 1.0, down[len(down)-1])
	assert.Greater(t, len(down), 2, "known length reports intermediate progress")
}

func TestS3Engine_DownloadUnknownLength_OnlyStartAndEnd(t *testing.T) {
	payload := bytes.Repeat([]byte{0xCD}, 8*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for off := 0; off < len(payload); off += 1024 {
			_, _ = w.Write(payload[off : off+1024])
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)

	e := NewS3Engine(S3Options{Presigner: &fakePresigner{base: srv.URL}, HTTPClient: srv.Client()})

	var down []float64
	got, err := e.Download(context.Background(), "attachments/chunked", func(p float64) { down = append(down, p) })
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))
	assert.Equal(t, []float64{0, 1}, down)
}

func TestS3Engine_DefaultKeysAreUnique(t *testing.T) {
	o := newObjectServer(t)
	e := newTestEngine(t, o, S3Options{})

	a, err := e.Upload(context.Background(), []byte("a"), "image/png", nil)
	require.NoError(t, err)
	b, err := e.Upload(context.Background(), []byte("a"), "image/png", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "attachments/"))
}

func TestS3Engine_DownloadMissing_NoFinalProgress(t *testing.T) {
	o := newObjectServer(t)
	e := newTestEngine(t, o, S3Options{})

	var got []float64
	_, err := e.Download(context.Background(), "attachments/missing", func(p float64) { got = append(got, p) })

	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, common.TransportServer, te.Kind)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.NotContains(t, got, 1.0)
}

func TestS3Engine_PresignFailure(t *testing.T) {
	o := newObjectServer(t)
	boom := errors.New("no credentials")
	e := newTestEngine(t, o, S3Options{Presigner: &fakePresigner{base: o.srv.URL, putErr: boom, getErr: boom}})

	_, err := e.Upload(context.Background(), []byte("x"), "image/png", nil)
	require.ErrorIs(t, err, common.ErrTransport)
	require.ErrorIs(t, err, boom)

	_, err = e.Download(context.Background(), "k", nil)
	require.ErrorIs(t, err, common.ErrTransport)
}

func TestS3Engine_TimeoutSurfacesAsTransportTimeout(t *testing.T) {
	block := make(chan struct{})
	o := newBlockingObjectServer(t, block)
	defer close(block)

	e := newTestEngine(t, o, S3Options{Timeout: 30 * time.Millisecond})

	_, err := e.Upload(context.Background(), []byte("x"), "image/png", nil)
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, common.TransportTimeout, te.Kind)
}

func TestS3Engine_MaxConcurrentBoundsTransfers(t *testing.T) {
	block := make(chan struct{})
	o := newBlockingObjectServer(t, block)

	e := newTestEngine(t, o, S3Options{MaxConcurrent: 1})

	firstDone := make(chan error, 1)
	go func() {
		_, err := e.Upload(context.Background(), []byte("first"), "image/png", nil)
		firstDone <- err
	}()

	// Give the first upload time to take the only slot.
	time.Sleep(30 * time.Millisecond)

	// Downloads are not blocked by the server, so only the semaphore can
	// keep this one waiting until its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Download(ctx, "whatever", nil)
	var te *common.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, common.TransportTimeout, te.Kind)

	close(block)
	require.NoError(t, <-firstDone)
}

func TestNewS3Presigner_SignsPathStyleURLs(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		require.Equal(t, "us-east-1", lo.Region)
		return aws.Config{Region: lo.Region, Credentials: lo.Credentials}, nil
	}

	p, err := NewS3Presigner(context.Background(), S3Config{
		Endpoint: "http://127.0.0.1:9000",
		Region:   "us-east-1",
		Bucket:   "attachments",
		User:     "minioadmin",
		Password: "minioadmin",
	})
	require.NoError(t, err)

	put, err := p.PresignPut(context.Background(), "attachments/2025/1/1/abc", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(put, "http://127.0.0.1:9000/attachments/attachments/2025/1/1/abc?"), put)
	assert.Contains(t, put, "X-Amz-Signature=")

	get, err := p.PresignGet(context.Background(), "attachments/2025/1/1/abc")
	require.NoError(t, err)
	assert.Contains(t, get, "X-Amz-Signature=")
}

func TestNewS3Presigner_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("cfg boom")
	}

	_, err := NewS3Presigner(context.Background(), S3Config{Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cfg boom")
}
