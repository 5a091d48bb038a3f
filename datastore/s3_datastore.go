package datastore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Siyun/carbondata/utils"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"
)

type (
	S3DataStore struct {
		bucket     string
		uploader   *s3manager.Uploader
		downloader *s3manager.Downloader
	}
)

func NewS3DataStore() (*S3DataStore, error) {
	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}

	return &S3DataStore{
		bucket:     utils.S3_BUCKET_NAME,
		uploader:   s3manager.NewUploader(s3Session),
		downloader: s3manager.NewDownloader(s3Session),
	}, nil
}

func (s *S3DataStore) segmentKey(table, segmentID string) string {
	return fmt.Sprintf("t=%s/segments/%s.bin", table, segmentID)
}

func (s *S3DataStore) ReadSegmentBlock(ctx context.Context, table, segmentID string) (io.ReadCloser, error) {
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	buf := &aws.WriteAtBuffer{}

	st := time.Now()
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.segmentKey(table, segmentID)),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading from s3: %w", err)
	}

	d := time.Since(st)
	logger.Debug().Str("segmentID", segmentID).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("downloaded segment block from s3")

	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func (s *S3DataStore) WriteSegmentBlock(ctx context.Context, table, segmentID string, r io.Reader) (int64, error) {
	return s.upload(ctx, s.segmentKey(table, segmentID), r)
}

func (s *S3DataStore) WriteExportFile(ctx context.Context, table, partition, fileName string, r io.Reader) (int64, error) {
	return s.upload(ctx, fmt.Sprintf("t=%s/exports/%s/%s", table, partition, fileName), r)
}

func (s *S3DataStore) upload(ctx context.Context, key string, r io.Reader) (int64, error) {
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	counted := &countingReader{inner: r}
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   counted,
	}

	st := time.Now()
	_, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("error uploading to s3: %w", err)
	}

	d := time.Since(st)
	logger.Debug().Str("fileName", key).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded file to s3")

	return counted.n, nil
}

func (s *S3DataStore) Shutdown(_ context.Context) error {
	return nil
}

type countingReader struct {
	inner io.Reader
	n     int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.inner.Read(p)
	cr.n += int64(n)
	return n, err
}
