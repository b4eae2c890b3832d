package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"careercoach/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestResumeKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "resumes/u1/abc"},
		{"resumes", "resumes/u1/abc"},
		{"/uploads/cv/", "uploads/cv/u1/abc"},
	}
	for _, tt := range tests {
		if got := ResumeKey(tt.prefix, "u1", "abc"); got != tt.want {
			t.Errorf("ResumeKey(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestFSStore(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := ResumeKey("", "u1", "abc")

	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := s.Put(ctx, key, []byte("pdf bytes"), "application/pdf"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, err := s.Get(ctx, key)
	if err != nil || string(data) != "pdf bytes" {
		t.Errorf("Get returned %q, %v", data, err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Deleting a missing blob should not fail: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		if err := s.Put(context.Background(), key, []byte("x"), ""); err == nil {
			t.Errorf("Expected key %q to be rejected", key)
		}
	}
}

type fakeObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
	s := &S3Store{client: fake, bucket: "cv"}
	ctx := context.Background()

	if err := s.Put(ctx, "resumes/u1/abc", []byte("docx"), "application/msword"); err != nil {
		t.Fatal(err)
	}
	if fake.types["resumes/u1/abc"] != "application/msword" {
		t.Error("Content type not forwarded")
	}
	data, err := s.Get(ctx, "resumes/u1/abc")
	if err != nil || string(data) != "docx" {
		t.Errorf("Get returned %q, %v", data, err)
	}
	if err := s.Delete(ctx, "resumes/u1/abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "resumes/u1/abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.BlobConfig{Backend: "none"})
	if err != nil || s != nil {
		t.Errorf("Expected no store, got %v, %v", s, err)
	}
	if _, err := New(ctx, config.BlobConfig{Backend: "filesystem", Dir: t.TempDir()}); err != nil {
		t.Errorf("filesystem backend failed: %v", err)
	}
	if _, err := New(ctx, config.BlobConfig{Backend: "s3"}); err == nil {
		t.Error("s3 without bucket should fail")
	}
	if _, err := New(ctx, config.BlobConfig{Backend: "ftp"}); err == nil {
		t.Error("Unknown backend should fail")
	}
}
