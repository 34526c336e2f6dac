package minio

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const Delimiter = "/"

type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

type Writer struct {
	client *minio.Client
	bucket string
}

func NewWriter(cfg Config, bucket string) (*Writer, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize minio client for archive writer")
	}

	found, err := minioClient.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, errors.Wrap(err, "check minio bucket exists")
	}

	if !found {
		if err := minioClient.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "make minio bucket")
		}
	}

	return &Writer{
		client: minioClient,
		bucket: bucket,
	}, nil
}

// StoreDir uploads every regular file under dir, keyed by the directory's
// base name plus the file's relative path.
func (w *Writer) StoreDir(ctx context.Context, dir string) error {
	prefix := filepath.Base(filepath.Clean(dir))

	return filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return errors.Wrap(err, "archive walk dir")
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Wrap(err, "archive rel path")
		}

		objName := prefix + Delimiter + filepath.ToSlash(rel)
		if _, err := w.client.FPutObject(ctx, w.bucket, objName, path, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		}); err != nil {
			return errors.Wrap(err, "archive put object")
		}

		return nil
	})
}
