package blob

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/Kizaaaa/certichain/core"
)

const bucketScheme = "bucket"

const artifactContentType = "application/octet-stream"

// BucketStore keeps artifacts in any gocloud.dev bucket (file://, mem://,
// s3://, gs://, azblob:// given the driver is linked in)
type BucketStore struct {
	bucket *blob.Bucket
	log    logrus.FieldLogger
}

// OpenBucketStore opens the bucket at url
func OpenBucketStore(ctx context.Context, url string, logger logrus.FieldLogger) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %q: %w", url, err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &BucketStore{bucket: bucket, log: logger}, nil
}

// Put implements ports.BlobStore
func (s *BucketStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	key := contentKey(data)

	opts := &blob.WriterOptions{
		ContentType: artifactContentType,
		Metadata:    map[string]string{"name": name},
	}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return "", fmt.Errorf("%w: bucket write: %v", core.ErrNetwork, err)
	}

	s.log.WithFields(logrus.Fields{"key": key, "name": name}).Debug("stored artifact")
	return bucketScheme + "://" + key, nil
}

// Get implements ports.BlobStore
func (s *BucketStore) Get(ctx context.Context, locator string) ([]byte, error) {
	key, err := splitLocator(locator, bucketScheme)
	if err != nil {
		return nil, err
	}

	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, core.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%w: bucket read: %v", core.ErrNetwork, err)
	}
	if err := verifyContent(key, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Close releases the bucket
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}
