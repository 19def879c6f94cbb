package contentstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

// maxObjectBytes bounds how much of the object is read into memory.
const maxObjectBytes = 8 << 20

type ObjectStoreConfig struct {
	Bucket string
	Key    string
}

// objectAPI is the subset of *s3.Client the object store medium calls.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var errObjectMissing = errors.New("object does not exist")

type objectStore struct {
	api    objectAPI
	bucket string
	key    string
}

func (o *objectStore) Read(ctx context.Context) ([]byte, error) {
	out, err := o.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, errObjectMissing
		}
		return nil, xerrors.Wrapf(err, "get s3://%s/%s", o.bucket, o.key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes+1))
	if err != nil {
		return nil, xerrors.Wrapf(err, "read s3://%s/%s", o.bucket, o.key)
	}
	if len(b) > maxObjectBytes {
		return nil, xerrors.Newf("s3://%s/%s exceeds %d bytes", o.bucket, o.key, maxObjectBytes)
	}
	return b, nil
}

// Write overwrites the object with the whole document.
func (o *objectStore) Write(ctx context.Context, data []byte) error {
	_, err := o.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(o.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
		CacheControl:  aws.String("no-cache"),
	})
	if err != nil {
		return xerrors.Wrapf(err, "put s3://%s/%s", o.bucket, o.key)
	}
	return nil
}

func isMissingObject(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var api smithy.APIError
	if errors.As(err, &api) {
		switch api.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
