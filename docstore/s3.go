package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/docledger/document-registry-backend/interfaces"
)

// S3Backend stores documents in Amazon S3 or a compatible service. Uploaded
// objects are publicly readable so the returned URL resolves without
// credentials.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	region      string
	endpoint    string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates an S3 storage backend. accessKey and secretKey may be
// empty, in which case the ambient AWS credential chain is used.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      prefix,
		region:      region,
		endpoint:    endpoint,
		log:         log,
		locationURI: uri,
	}, nil
}

func (b *S3Backend) objectKey(objectPath string) string {
	if b.prefix == "" {
		return objectPath
	}
	return path.Join(b.prefix, objectPath)
}

// Upload stores the content and returns its public URL.
func (b *S3Backend) Upload(ctx context.Context, objectPath string, content io.Reader, contentType string) (string, error) {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return "", err
	}

	// PutObject needs a seekable body.
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.objectKey(clean)),
		Body:   bytes.NewReader(data),
		ACL:    aws.String("public-read"),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("uploading object to s3: %w", err)
	}

	b.log.Debug("Stored document in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.objectKey(clean)),
		slog.Int("size", len(data)))

	return b.PublicURL(clean), nil
}

// Fetch retrieves the object content.
func (b *S3Backend) Fetch(ctx context.Context, objectPath string) ([]byte, error) {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return nil, err
	}

	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.objectKey(clean)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("fetching object from s3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object body: %w", err)
	}
	return data, nil
}

// PublicURL returns the object's public URL.
func (b *S3Backend) PublicURL(objectPath string) string {
	key := escapePath(b.objectKey(objectPath))
	if b.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(b.endpoint, "/"), b.bucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucketName, b.region, key)
}

// LocationURI returns the backend's identifying URI.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}
