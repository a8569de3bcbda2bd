// Package netx moves attachment bytes to and from presigned object-store
// URLs, reporting transferred byte counts and classifying failures as
// common.TransportError.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/dmitrijs2005/chatattach/internal/common"
)

// CountFunc receives the running number of transferred bytes and the total
// (or -1 when unknown).
type CountFunc func(done, total int64)

type countingReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    CountFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.done += int64(n)
		if c.fn != nil {
			c.fn(c.done, c.total)
		}
	}
	return n, err
}

// Put uploads body to a presigned URL.
func Put(ctx context.Context, client *http.Client, url string, body []byte, contentType string, fn CountFunc) error {
	total := int64(len(body))
	cr := &countingReader{r: bytes.NewReader(body), total: total, fn: fn}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, cr)
	if err != nil {
		return &common.TransportError{Op: "upload", Kind: common.TransportServer, Err: err}
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return Classify(ctx, "upload", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError("upload", resp, b)
	}
	return nil
}

// Get downloads the object behind a presigned URL.
func Get(ctx context.Context, client *http.Client, url string, fn CountFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &common.TransportError{Op: "download", Kind: common.TransportServer, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(ctx, "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError("download", resp, b)
	}

	total := resp.ContentLength
	cr := &countingReader{r: resp.Body, total: total, fn: fn}

	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	if _, err := io.Copy(&buf, cr); err != nil {
		return nil, Classify(ctx, "download", err)
	}
	return buf.Bytes(), nil
}

func statusError(op string, resp *http.Response, body []byte) error {
	return &common.TransportError{
		Op:         op,
		Kind:       common.TransportServer,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("%s failed: %s; body: %s", op, resp.Status, string(body)),
	}
}

// Classify maps a client-side failure to a TransportError. Cancellation of
// ctx wins over whatever error the transport surfaced.
func Classify(ctx context.Context, op string, err error) error {
	var te *common.TransportError
	if errors.As(err, &te) {
		return err
	}

	kind := common.TransportUnavailable

	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled):
		kind = common.TransportCancelled
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = common.TransportTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = common.TransportTimeout
	}

	return &common.TransportError{Op: op, Kind: kind, Err: err}
}
