package clicks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sdko-org/shortlink/internal/config"
	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const archiveBatchSize = 10000

// Archiver exports aged click events to S3 as NDJSON objects and prunes the
// exported rows, keeping the click_events table bounded. The export always
// lands before the prune, so rows are never dropped silently.
type Archiver struct {
	db        *gorm.DB
	uploader  *s3manager.Uploader
	bucket    string
	retention time.Duration
	interval  time.Duration
	log       *logrus.Entry
}

func NewArchiver(logger *logrus.Logger, db *gorm.DB, cfg *config.Config) *Archiver {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.S3Region),
		Credentials:      credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
	}

	sess := session.Must(session.NewSession(awsConfig))

	return &Archiver{
		db:        db,
		uploader:  s3manager.NewUploader(sess),
		bucket:    cfg.S3Bucket,
		retention: cfg.ClickRetention,
		interval:  cfg.ArchiveInterval,
		log:       logger.WithField("component", "click_archiver"),
	}
}

func (a *Archiver) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.log.WithField("retention", a.retention.String()).Info("Starting click archiver")

	for {
		select {
		case <-ticker.C:
			a.archiveBatch(ctx)
		case <-ctx.Done():
			a.log.Info("Stopping click archiver")
			return
		}
	}
}

func (a *Archiver) archiveBatch(ctx context.Context) {
	cutoff := time.Now().Add(-a.retention)

	var events []models.ClickEvent
	if err := a.db.WithContext(ctx).
		Where("clicked_at < ?", cutoff).
		Order("clicked_at").
		Limit(archiveBatchSize).
		Find(&events).Error; err != nil {
		a.log.WithError(err).Error("Archive query failed")
		return
	}
	if len(events) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	ids := make([]uint, 0, len(events))
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			a.log.WithError(err).Error("Failed to encode click event")
			return
		}
		ids = append(ids, events[i].ID)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("clicks/%s/%d.ndjson", now.Format("2006-01-02"), now.UnixNano())

	if _, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	}); err != nil {
		a.log.WithError(err).Error("S3 upload failed, keeping rows for next run")
		return
	}

	if err := a.db.WithContext(ctx).
		Delete(&models.ClickEvent{}, "id IN ?", ids).Error; err != nil {
		a.log.WithError(err).Error("Failed to prune archived click events")
		return
	}

	a.log.WithFields(logrus.Fields{
		"count": len(events),
		"key":   key,
	}).Info("Archived click events")
}
