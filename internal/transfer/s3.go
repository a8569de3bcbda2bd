package transfer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/logging"
	"github.com/dmitrijs2005/chatattach/internal/netx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignExpiry = 15 * time.Minute

// Presigner hands out short-lived URLs for a single object.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// S3Config describes an S3-compatible endpoint (MinIO in development).
type S3Config struct {
	Endpoint string
	Region   string
	Bucket   string
	User     string
	Password string
}

type s3Presigner struct {
	client *s3.PresignClient
	bucket string
}

// NewS3Presigner builds a Presigner with static credentials and path-style
// addressing against cfg.Endpoint.
func NewS3Presigner(ctx context.Context, cfg S3Config) (Presigner, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.User,
			cfg.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &s3Presigner{client: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

func (p *s3Presigner) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := presignPutObject(p.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (p *s3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(p.client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// NewStorageKey returns a fresh object key, bucketed by upload date.
func NewStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// S3Options configures NewS3Engine.
type S3Options struct {
	Presigner  Presigner
	HTTPClient *http.Client
	// Timeout bounds each Upload or Download; zero disables it.
	Timeout time.Duration
	// MaxConcurrent bounds simultaneous transfers; zero means unbounded.
	MaxConcurrent int64
	Logger        logging.Logger
	// KeyFunc overrides NewStorageKey.
	KeyFunc func() string
}

// S3Engine uploads and downloads through presigned URLs.
type S3Engine struct {
	presigner Presigner
	http      *http.Client
	timeout   time.Duration
	sem       *semaphore.Weighted
	logger    logging.Logger
	keyFunc   func() string
}

var _ Engine = (*S3Engine)(nil)

func NewS3Engine(opts S3Options) *S3Engine {
	e := &S3Engine{
		presigner: opts.Presigner,
		http:      opts.HTTPClient,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		keyFunc:   opts.KeyFunc,
	}
	if e.http == nil {
		e.http = http.DefaultClient
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	if e.keyFunc == nil {
		e.keyFunc = NewStorageKey
	}
	if opts.MaxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	return e
}

func (e *S3Engine) begin(ctx context.Context, op string) (context.Context, func(), error) {
	cancel := func() {}
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	if e.sem == nil {
		return ctx, cancel, nil
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		cancel()
		return nil, nil, netx.Classify(ctx, op, err)
	}
	return ctx, func() {
		e.sem.Release(1)
		cancel()
	}, nil
}

func (e *S3Engine) Upload(ctx context.Context, data []byte, mimeType string, progress ProgressFunc) (string, error) {
	ctx, done, err := e.begin(ctx, "upload")
	if err != nil {
		return "", err
	}
	defer done()

	tracker := newProgressTracker(progress)
	tracker.start()

	key := e.keyFunc()

	url, err := e.presigner.PresignPut(ctx, key, mimeType)
	if err != nil {
		tracker.abort()
		return "", &common.TransportError{Op: "upload", Kind: common.TransportServer, Err: fmt.Errorf("presign put: %w", err)}
	}

	if err := netx.Put(ctx, e.http, url, data, mimeType, tracker.bytes); err != nil {
		tracker.abort()
		e.logger.Warn(ctx, "upload failed", "key", key, "error", err)
		return "", err
	}

	tracker.complete()
	e.logger.Debug(ctx, "upload complete", "key", key, "size", len(data))
	return key, nil
}

func (e *S3Engine) Download(ctx context.Context, ref string, progress ProgressFunc) ([]byte, error) {
	ctx, done, err := e.begin(ctx, "download")
	if err != nil {
		return nil, err
	}
	defer done()

	tracker := newProgressTracker(progress)
	tracker.start()

	url, err := e.presigner.PresignGet(ctx, ref)
	if err != nil {
		tracker.abort()
		return nil, &common.TransportError{Op: "download", Kind: common.TransportServer, Err: fmt.Errorf("presign get: %w", err)}
	}

	data, err := netx.Get(ctx, e.http, url, tracker.bytes)
	if err != nil {
		tracker.abort()
		e.logger.Warn(ctx, "download failed", "key", ref, "error", err)
		return nil, err
	}

	tracker.complete()
	e.logger.Debug(ctx, "download complete", "key", ref, "size", len(data))
	return data, nil
}
