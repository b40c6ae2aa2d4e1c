// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     conversation
// Description: Transcript export to disk and S3-compatible storage
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Transcript is the exported form of a conversation
type Transcript struct {
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Messages   []Message `json:"messages"`
}

// S3Config holds the upload target
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// IsConfigured reports whether uploads are possible
func (c S3Config) IsConfigured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// objectPutter is the part of the S3 client the archiver uses
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// newS3Client creates an S3 client with static credentials
func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
			o.Region = region
		},
	}
	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.New(s3.Options{}, options...)
}

// Archiver writes transcripts to a directory and optionally uploads them
type Archiver struct {
	dir    string
	s3cfg  S3Config
	client objectPutter
	logger *logging.Logger
	now    func() time.Time
}

// NewArchiver creates an archiver. An empty dir disables local files.
func NewArchiver(dir string, s3cfg S3Config, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.New("archive")
	}
	a := &Archiver{dir: dir, s3cfg: s3cfg, logger: logger, now: time.Now}
	if s3cfg.IsConfigured() {
		a.client = newS3Client(s3cfg)
	}
	return a
}

// Enabled reports whether the archiver has any target
func (a *Archiver) Enabled() bool {
	return a.dir != "" || a.client != nil
}

// Archive exports the messages and returns the locations written to.
// An empty message list is not archived.
func (a *Archiver) Archive(ctx context.Context, messages []Message) ([]string, error) {
	if len(messages) == 0 || !a.Enabled() {
		return nil, nil
	}

	now := a.now().UTC()
	data, err := json.MarshalIndent(Transcript{ExportedAt: now, Count: len(messages), Messages: messages}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	name := fmt.Sprintf("transcript-%s.json", now.Format("20060102-150405"))

	var locations []string
	if a.dir != "" {
		if err := os.MkdirAll(a.dir, 0755); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeArchiveFailed, "failed to create archive directory")
		}
		p := filepath.Join(a.dir, name)
		if err := os.WriteFile(p, data, 0644); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeArchiveFailed, "failed to write transcript")
		}
		locations = append(locations, p)
	}

	if a.client != nil {
		key := path.Join(a.s3cfg.Prefix, name)
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(a.s3cfg.Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String("application/json"),
		})
		if err != nil {
			return locations, apperr.Wrap(err, apperr.CodeArchiveFailed, "failed to upload transcript").
				WithDetail("bucket", a.s3cfg.Bucket)
		}
		locations = append(locations, "s3://"+a.s3cfg.Bucket+"/"+key)
	}

	a.logger.Info("Transcript archived", "messages", len(messages), "locations", locations)
	return locations, nil
}
