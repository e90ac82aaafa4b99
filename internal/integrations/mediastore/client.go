// Package mediastore issues short-lived download URLs for voicemail
// recordings archived in S3.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignAPI is the minimal slice of the S3 presign client used by Client.
// *s3.PresignClient satisfies it.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Client presigns GET requests against a single recordings bucket.
type Client struct {
	api    presignAPI
	bucket string
}

func New(api presignAPI, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("mediastore: presign api must not be nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("mediastore: bucket must not be empty")
	}
	return &Client{api: api, bucket: bucket}, nil
}

// SignedURL returns a presigned GET URL for the object at key, valid for
// the given duration.
func (c *Client) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("mediastore: key is required")
	}
	if expires <= 0 {
		return "", errors.New("mediastore: expiry must be positive")
	}

	out, err := c.api.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("mediastore: presign %q: %w", key, err)
	}
	if out == nil || out.URL == "" {
		return "", errors.New("mediastore: presign returned no URL")
	}
	return out.URL, nil
}
