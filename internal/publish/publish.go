package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/mholt/archives"
	log "github.com/sirupsen/logrus"
)

const archiveTimeLayout = "2006-01-02-15-04-05"

// Client is the subset of the S3 API the publisher needs.
type Client interface {
	manager.UploadAPIClient
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketVersioning(ctx context.Context, in *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
}

// Publisher archives an output directory and uploads it to a bucket.
type Publisher struct {
	Bucket string
	Region string
	Prefix string // optional key prefix

	client Client
	now    func() time.Time
}

func New(client Client, bucket, region, prefix string) *Publisher {
	return &Publisher{
		Bucket: bucket,
		Region: region,
		Prefix: prefix,
		client: client,
		now:    time.Now,
	}
}

// NewFromEnv builds an S3 client from the default AWS credential chain.
func NewFromEnv(ctx context.Context, bucket, region, prefix string) (*Publisher, error) {
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("bucket and region are required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, region, prefix), nil
}

// ArchiveName returns the archive file name for t.
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("curves-%s.tar.gz", t.UTC().Format(archiveTimeLayout))
}

// Archive writes dir as a gzip-compressed tar to w, with dir's contents at the archive root.
func Archive(ctx context.Context, dir string, w io.Writer) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	// A trailing separator makes FilesFromDisk enumerate the contents without dir itself.
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		filepath.Clean(dir) + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to prepare files for archiving: %w", err)
	}

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, w, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

// Publish archives dir into a temporary file and uploads it. It returns the object key.
func (p *Publisher) Publish(ctx context.Context, dir string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("s3 client is nil")
	}
	name := ArchiveName(p.now())

	tmp, err := os.CreateTemp("", "curves-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := Archive(ctx, dir, tmp); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := p.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := name
	if p.Prefix != "" {
		key = path.Join(p.Prefix, name)
	}
	uploader := manager.NewUploader(p.client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(key),
		Body:   tmp,
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filepath.Base(dir), err)
	}

	log.Infof("Publish: uploaded s3://%s/%s", p.Bucket, key)
	return key, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(p.Bucket),
	})
	if err == nil {
		return nil
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(p.Bucket)}
	// us-east-1 rejects an explicit location constraint.
	if p.Region != "" && p.Region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(p.Region),
		}
	}
	if _, err := p.client.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("unable to create bucket: %w", err)
	}
	log.Infof("Publish: created bucket %s", p.Bucket)

	_, err = p.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(p.Bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		log.Warnf("Publish: failed to enable versioning: %v", err)
	}
	return nil
}
