package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 transport. Endpoint is optional; when set it is
// used as the base endpoint, which also covers S3-compatible services
// (MinIO, DigitalOcean Spaces, Backblaze B2).
type S3Options struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	DisableTLS     bool
	ForcePathStyle bool
}

// S3Transport stores artifacts as objects under an optional key prefix in a
// single bucket.
type S3Transport struct {
	api     *s3.Client
	bucket  string
	prefix  string
	haveKey bool
}

// NewS3Transport builds an S3 transport from explicit options.
func NewS3Transport(ctx context.Context, opts S3Options) (*S3Transport, error) {
	if opts.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 5 * time.Minute}),
	}
	haveKey := opts.AccessKey != "" && opts.SecretKey != ""
	if haveKey {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if opts.DisableTLS {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3Transport{
		api:     client,
		bucket:  opts.Bucket,
		prefix:  strings.Trim(opts.Prefix, "/"),
		haveKey: haveKey,
	}, nil
}

func (t *S3Transport) wrap(op, key string, err error) error {
	return &Error{Backend: "s3", Op: op, Key: key, Err: err}
}

func (t *S3Transport) objectKey(name string) string {
	if t.prefix == "" {
		return name
	}
	return path.Join(t.prefix, name)
}

// IsConfigured reports whether a bucket has been set.
func (t *S3Transport) IsConfigured() bool {
	return t != nil && t.bucket != ""
}

// IsAuthenticated checks the credentials by heading the bucket.
func (t *S3Transport) IsAuthenticated(ctx context.Context) (bool, error) {
	if !t.IsConfigured() {
		return false, nil
	}
	_, err := t.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &t.bucket})
	if err != nil {
		return false, t.wrap("auth", "", err)
	}
	return true, nil
}

// List returns the object names under the prefix whose name ends with ext.
func (t *S3Transport) List(ctx context.Context, ext string) ([]string, error) {
	var names []string
	prefix := t.prefix
	if prefix != "" {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{Bucket: &t.bucket, Prefix: &prefix}
	paginator := s3.NewListObjectsV2Paginator(t.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, t.wrap("list", "", err)
		}
		for _, obj := range page.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if strings.HasSuffix(name, ext) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Push uploads the file at localPath under its base name.
func (t *S3Transport) Push(ctx context.Context, localPath string) error {
	name := filepath.Base(localPath)
	file, err := os.Open(localPath)
	if err != nil {
		return t.wrap("push", name, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return t.wrap("push", name, err)
	}
	size := info.Size()

	key := t.objectKey(name)
	_, err = t.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &t.bucket,
		Key:           &key,
		Body:          file,
		ContentLength: &size,
	})
	if err != nil {
		return t.wrap("push", name, err)
	}
	return nil
}

// Pull downloads the object named remoteKey to localPath.
func (t *S3Transport) Pull(ctx context.Context, remoteKey, localPath string) error {
	key := t.objectKey(remoteKey)
	out, err := t.api.GetObject(ctx, &s3.GetObjectInput{Bucket: &t.bucket, Key: &key})
	if err != nil {
		return t.wrap("pull", remoteKey, err)
	}
	defer out.Body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return t.wrap("pull", remoteKey, err)
	}
	if _, err := io.Copy(file, out.Body); err != nil {
		file.Close()
		return t.wrap("pull", remoteKey, err)
	}
	if err := file.Close(); err != nil {
		return t.wrap("pull", remoteKey, err)
	}
	return nil
}

// Delete removes the object named remoteKey.
func (t *S3Transport) Delete(ctx context.Context, remoteKey string) error {
	key := t.objectKey(remoteKey)
	_, err := t.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &t.bucket, Key: &key})
	if err != nil {
		return t.wrap("delete", remoteKey, err)
	}
	return nil
}

var _ Transport = (*S3Transport)(nil)
