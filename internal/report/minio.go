package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"headwatch/internal/alert"
	"headwatch/internal/config"
	"headwatch/internal/pipeline"
)

// ObjectPutter is the part of *minio.Client used by MinioSink.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink stores the annotated frame of every exceeded report and records
// the object path on the report.
type MinioSink struct {
	cli    ObjectPutter
	bucket string
}

func NewMinioSink(cli ObjectPutter, bucket string) *MinioSink {
	return &MinioSink{cli: cli, bucket: bucket}
}

func NewMinioClient(conf config.S3Config) (*minio.Client, error) {
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	minioCli, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyID, conf.SecretAccessKey, ""),
		Secure: conf.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return minioCli, nil
}

func EvidencePath(r *pipeline.Report) string {
	ts := r.CreatedAt
	return fmt.Sprintf("/%04d/%02d/%02d/%s.jpg", ts.Year(), ts.Month(), ts.Day(), r.ID)
}

func (s *MinioSink) Publish(ctx context.Context, r *pipeline.Report) error {
	if r.Decision != alert.Exceeded || r.Frame.Annotated == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.Frame.Annotated, imaging.JPEG); err != nil {
		return fmt.Errorf("encode annotated image: %w", err)
	}

	objectPath := EvidencePath(r)
	_, err := s.cli.PutObject(ctx, s.bucket, objectPath[1:], &buf, int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return fmt.Errorf("put object to minio failed: %w", err)
	}
	r.EvidencePath = objectPath
	return nil
}
