package publish

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucketExists bool
	created      *s3.CreateBucketInput
	versioned    bool
	puts         map[string][]byte
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, errors.New("not found")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = in
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutBucketVersioning(ctx context.Context, in *s3.PutBucketVersioningInput, _ ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
	f.versioned = true
	return &s3.PutBucketVersioningOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func writeOutputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2023"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023", "supply.json"), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023", "demand.json"), []byte(`[]`), 0o644))
	return dir
}

func tarNames(t *testing.T, raw []byte) []string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if h.Typeflag == tar.TypeReg {
			names = append(names, filepath.ToSlash(h.Name))
		}
	}
	sort.Strings(names)
	return names
}

func TestArchive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Archive(context.Background(), writeOutputDir(t), &buf))
	assert.Equal(t, []string{"2023/demand.json", "2023/supply.json"}, tarNames(t, buf.Bytes()))

	// A trailing slash on the input must not change the layout.
	buf.Reset()
	require.NoError(t, Archive(context.Background(), writeOutputDir(t)+string(os.PathSeparator), &buf))
	assert.Equal(t, []string{"2023/demand.json", "2023/supply.json"}, tarNames(t, buf.Bytes()))

	assert.Error(t, Archive(context.Background(), filepath.Join(t.TempDir(), "missing"), &buf))
}

func TestPublishCreatesBucket(t *testing.T) {
	client := &fakeS3{}
	p := New(client, "curves", "ap-southeast-2", "runs")
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	key, err := p.Publish(context.Background(), writeOutputDir(t))
	require.NoError(t, err)
	assert.Equal(t, "runs/curves-2024-03-01-12-30-00.tar.gz", key)

	require.NotNil(t, client.created)
	assert.Equal(t, "ap-southeast-2", string(client.created.CreateBucketConfiguration.LocationConstraint))
	assert.True(t, client.versioned)
	assert.Equal(t, []string{"2023/demand.json", "2023/supply.json"}, tarNames(t, client.puts[key]))
}

func TestPublishExistingBucket(t *testing.T) {
	client := &fakeS3{bucketExists: true}
	p := New(client, "curves", "us-east-1", "")

	key, err := p.Publish(context.Background(), writeOutputDir(t))
	require.NoError(t, err)
	assert.Nil(t, client.created)
	assert.Contains(t, client.puts, key)
}
