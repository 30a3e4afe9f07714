// Package storage talks to the S3-compatible object store (Cloudflare R2)
// that holds uploaded images and video.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/portfolio/backend/internal/apperrors"
)

const DefaultUploadTTL = 900 * time.Second

type Config struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL, when set, replaces endpoint/bucket in URLs built by
	// bulk sync.
	PublicBaseURL string
}

// Object is a streamed object body. Callers close Body.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength *int64
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

type Client struct {
	cfg     Config
	s3      *s3.Client
	presign *s3.PresignClient
}

// New builds a client. Missing endpoint, bucket or credentials is a
// ConfigurationError.
func New(cfg Config) (*Client, error) {
	cfg.Endpoint = trimSlashes(cfg.Endpoint)
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, apperrors.Configuration("R2 config missing; set R2_ENDPOINT, R2_BUCKET, R2_ACCESS_KEY_ID, and R2_SECRET_ACCESS_KEY")
	}

	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		// Path-style avoids bucket subdomains whose certificates R2 does not serve.
		UsePathStyle: true,
	})

	return &Client{
		cfg:     cfg,
		s3:      client,
		presign: s3.NewPresignClient(client),
	}, nil
}

func (c *Client) Bucket() string { return c.cfg.Bucket }

// PresignPut authorizes one PUT of key with the declared content type.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignGet authorizes GETs of key until ttl elapses.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PublicURL is PublicURLForKey with this client's endpoint and bucket.
func (c *Client) PublicURL(key string) string {
	return PublicURLForKey(c.cfg.Endpoint, c.cfg.Bucket, key)
}

// SyncURL is the URL bulk sync records for key: the public base when one is
// configured, the endpoint/bucket path otherwise.
func (c *Client) SyncURL(key string) string {
	escaped := url.PathEscape(key)
	if base := trimSlashes(c.cfg.PublicBaseURL); base != "" {
		return base + "/" + escaped
	}
	return c.cfg.Endpoint + "/" + c.cfg.Bucket + "/" + escaped
}

// SourcePath is the r2:// origin hint stored alongside synced rows.
func (c *Client) SourcePath(key string) string {
	return "r2://" + c.cfg.Bucket + "/" + key
}

// PublicURLForKey derives the read URL of key without any network call.
// It returns "" when endpoint or bucket is unknown.
func PublicURLForKey(endpoint, bucket, key string) string {
	endpoint = trimSlashes(endpoint)
	if endpoint == "" || bucket == "" {
		return ""
	}
	if strings.Contains(endpoint, bucket) {
		return endpoint + "/" + key
	}
	return endpoint + "/" + bucket + "/" + key
}

// GetObject streams key. A missing object is a NotFoundError, any other
// answer from the service an UpstreamError carrying its status.
func (c *Client) GetObject(ctx context.Context, key string) (*Object, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(key, err)
	}
	return &Object{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: out.ContentLength,
	}, nil
}

func (c *Client) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(key, err)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
	}, nil
}

// ListAll pages through every object under prefix.
func (c *Client) ListAll(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	p := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.cfg.Bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1000),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify(prefix, err)
		}
		for _, o := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
				ETag:         aws.ToString(o.ETag),
			})
		}
	}
	return objects, nil
}

func (c *Client) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return classify(key, err)
	}
	return nil
}

func classify(key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return apperrors.NotFound("object %q not found", key)
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == 404 {
			return apperrors.NotFound("object %q not found", key)
		}
		return apperrors.Upstream(respErr.HTTPStatusCode(), "storage request failed", err)
	}
	return apperrors.Upstream(0, "storage request failed", err)
}

func trimSlashes(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
