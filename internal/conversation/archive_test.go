package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

type fakePutter struct {
	key  string
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = *in.Key
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func fixedArchiver(dir string, putter objectPutter, cfg S3Config) *Archiver {
	a := NewArchiver(dir, cfg, logging.Discard())
	if putter != nil {
		a.client = putter
	}
	a.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }
	return a
}

func TestArchiver_WritesFile(t *testing.T) {
	dir := t.TempDir()
	a := fixedArchiver(dir, nil, S3Config{})

	locations, err := a.Archive(context.Background(), []Message{message(1), message(2)})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if len(locations) != 1 || !strings.HasSuffix(locations[0], "transcript-20260301-123000.json") {
		t.Fatalf("locations = %v", locations)
	}

	data, err := os.ReadFile(locations[0])
	if err != nil {
		t.Fatal(err)
	}
	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatalf("transcript is not JSON: %v", err)
	}
	if tr.Count != 2 || tr.Messages[1].Original != "original 2" {
		t.Errorf("transcript = %+v", tr)
	}
}

func TestArchiver_UploadsToS3(t *testing.T) {
	putter := &fakePutter{}
	cfg := S3Config{Bucket: "transcripts", Prefix: "dolmetscher", AccessKeyID: "k", SecretAccessKey: "s"}
	a := fixedArchiver("", putter, cfg)

	locations, err := a.Archive(context.Background(), []Message{message(1)})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if putter.key != "dolmetscher/transcript-20260301-123000.json" {
		t.Errorf("key = %q", putter.key)
	}
	if len(locations) != 1 || locations[0] != "s3://transcripts/dolmetscher/transcript-20260301-123000.json" {
		t.Errorf("locations = %v", locations)
	}
	if !strings.Contains(string(putter.body), "original 1") {
		t.Error("uploaded body misses the message")
	}
}

func TestArchiver_UploadFailure(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	cfg := S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}
	a := fixedArchiver("", putter, cfg)

	_, err := a.Archive(context.Background(), []Message{message(1)})
	if !apperr.HasCode(err, apperr.CodeArchiveFailed) {
		t.Errorf("Archive() error = %v, want ARCHIVE_FAILED", err)
	}
}

func TestArchiver_NothingToDo(t *testing.T) {
	a := fixedArchiver("", nil, S3Config{})
	if a.Enabled() {
		t.Error("archiver without targets reports enabled")
	}
	locations, err := a.Archive(context.Background(), []Message{message(1)})
	if err != nil || locations != nil {
		t.Errorf("Archive() = %v, %v", locations, err)
	}
}
