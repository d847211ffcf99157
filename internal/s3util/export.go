// Package s3util exports generated thumbnails to S3.
package s3util

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fpang/thumbnail-studio/internal/imaging"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultURLExpiry is how long exported object links stay valid.
const DefaultURLExpiry = 24 * time.Hour

// maxParallelUploads bounds concurrent PutObject calls per export.
const maxParallelUploads = 4

// ObjectPutter is the subset of *s3.Client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient used for download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Exporter uploads a session's thumbnails to a bucket.
type Exporter struct {
	client  ObjectPutter
	presign Presigner
	bucket  string
	expiry  time.Duration
}

// ExportedObject describes one uploaded thumbnail.
type ExportedObject struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// NewExporter creates an exporter for bucket. presign may be nil, in which
// case exported objects carry no URL.
func NewExporter(client ObjectPutter, presign Presigner, bucket string) *Exporter {
	return &Exporter{client: client, presign: presign, bucket: bucket, expiry: DefaultURLExpiry}
}

// NewExporterFromClient wires both interfaces from one S3 client.
func NewExporterFromClient(client *s3.Client, bucket string) *Exporter {
	return NewExporter(client, s3.NewPresignClient(client), bucket)
}

// Bucket returns the destination bucket.
func (e *Exporter) Bucket() string {
	return e.bucket
}

// ObjectKey returns the key a thumbnail is stored under.
func ObjectKey(sessionID string, t studio.Thumbnail) string {
	return fmt.Sprintf("%s/%s%s", sessionID, t.ID, imaging.Extension(t.Image.MIMEType))
}

// Export uploads every thumbnail in parallel and returns their keys in input
// order. The first failure cancels the remaining uploads.
func (e *Exporter) Export(ctx context.Context, sessionID string, thumbs []studio.Thumbnail) ([]ExportedObject, error) {
	out := make([]ExportedObject, len(thumbs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelUploads)

	for i, t := range thumbs {
		eg.Go(func() error {
			obj, err := e.upload(ctx, sessionID, t)
			if err != nil {
				return err
			}
			out[i] = obj
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Str("bucket", e.bucket).
		Str("session", sessionID).
		Int("objects", len(out)).
		Msg("Thumbnails exported to S3")
	return out, nil
}

func (e *Exporter) upload(ctx context.Context, sessionID string, t studio.Thumbnail) (ExportedObject, error) {
	key := ObjectKey(sessionID, t)
	mime := t.Image.MIMEType
	if mime == "" {
		mime = "image/png"
	}

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(t.Image.Data),
		ContentType: aws.String(mime),
		Metadata:    map[string]string{"caption": asciiOnly(t.Caption)},
		Tagging:     ProjectTagging(),
	})
	if err != nil {
		return ExportedObject{}, fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	obj := ExportedObject{ID: t.ID, Key: key}
	if e.presign != nil {
		req, err := e.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(e.bucket),
			Key:    aws.String(key),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = e.expiry
		})
		if err != nil {
			return ExportedObject{}, fmt.Errorf("presign GetObject: %w", err)
		}
		obj.URL = req.URL
	}

	log.Debug().Str("key", key).Int("bytes", len(t.Image.Data)).Msg("Thumbnail uploaded")
	return obj, nil
}

// asciiOnly drops characters S3 user metadata cannot carry.
func asciiOnly(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b = append(b, byte(r))
		}
	}
	return string(b)
}
