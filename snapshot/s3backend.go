package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Backend stores snapshots as S3 objects, giving the store a durable
// remote target alongside LocalBackend. It resolves "s3://bucket/key"
// URIs directly via aws-sdk-go's session and s3 service client, the
// same SDK entry point encoding/bamprovider's S3-backed tests exercise
// (there, indirectly, through grailbio's own s3 file-implementation
// layer; here, directly, since the snapshot store only ever needs
// whole-object get/put, not range reads).
type S3Backend struct {
	sess *session.Session
}

// NewS3Backend opens an AWS session using the environment's default
// credential chain and region resolution.
func NewS3Backend() (*S3Backend, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return &S3Backend{sess: sess}, nil
}

func (b *S3Backend) WriteAll(ctx context.Context, uri string, data []byte) error {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}
	client := s3.New(b.sess)
	_, err = client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (b *S3Backend) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	client := s3.New(b.sess)
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return ioutil.ReadAll(out.Body)
}

func parseS3URI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("snapshot: not an s3 URI: %q", uri)
	}
	rest := uri[len(prefix):]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("snapshot: malformed s3 URI: %q", uri)
	}
	return parts[0], parts[1], nil
}
