package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sort"
	"strings"
	"time"

	"news-scraper/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// BackupConfig configures one backup run.
type BackupConfig struct {
	DatabaseURL     string `envconfig:"DATABASE_URL" required:"true"`
	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" default:"us-east-1"`
	BackupPrefix    string `envconfig:"BACKUP_S3_PREFIX" default:"backups/"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// backupClient is the part of *s3.Client the backup job needs.
type backupClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starting backup...")

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx := context.Background()

	dumpData, err := createDump(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("Database dump failed", zap.Error(err))
	}

	client, err := storage.NewS3Client(ctx, storage.S3Options{
		URL:    cfg.BackupEndpoint,
		Region: cfg.BackupRegion,
		Key:    cfg.BackupAccessKey,
		Secret: cfg.BackupSecretKey,
	})
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	key := backupKey(cfg.BackupPrefix, time.Now())
	if err := upload(ctx, client, cfg.BackupBucket, key, dumpData); err != nil {
		logging.Fatal("Backup upload failed", zap.Error(err))
	}
	logging.Info("Backup uploaded", zap.String("bucket", cfg.BackupBucket), zap.String("key", key), zap.Int("bytes", len(dumpData)))

	if err := rotateBackups(ctx, client, cfg, logging); err != nil {
		logging.Fatal("Backup rotation failed", zap.Error(err))
	}
	logging.Info("Backup finished.")
}

func backupKey(prefix string, t time.Time) string {
	return fmt.Sprintf("%sbackup-%s.sql.gz", prefix, t.UTC().Format("2006-01-02T15-04-05Z"))
}

// createDump runs pg_dump against databaseURL and returns the gzipped output.
func createDump(ctx context.Context, databaseURL string) ([]byte, error) {
	return gzipOutput(exec.CommandContext(ctx, "pg_dump", "--no-password", "--dbname="+databaseURL))
}

// gzipOutput runs cmd and returns its stdout gzipped. The child is always waited for,
// and its stderr is attached to the error when it fails.
func gzipOutput(cmd *exec.Cmd) ([]byte, error) {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, copyErr := io.Copy(gzipWriter, stdout)
	if copyErr != nil {
		// the child may be blocked on a full pipe
		_ = cmd.Process.Kill()
	}
	closeErr := gzipWriter.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", cmd.Args[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", cmd.Args[0], err)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("read %s output: %w", cmd.Args[0], copyErr)
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return buf.Bytes(), nil
}

func upload(ctx context.Context, client backupClient, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/gzip"),
	})
	return err
}

// staleBackups returns the objects beyond the newest keep, newest first.
func staleBackups(objects []types.Object, keep int) []types.Object {
	if len(objects) <= keep {
		return nil
	}
	sorted := make([]types.Object, len(objects))
	copy(sorted, objects)
	sort.Slice(sorted, func(i, j int) bool {
		return aws.ToTime(sorted[i].LastModified).After(aws.ToTime(sorted[j].LastModified))
	})
	return sorted[keep:]
}

func rotateBackups(ctx context.Context, client backupClient, cfg BackupConfig, logging *zap.Logger) error {
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.BackupBucket),
		Prefix: aws.String(cfg.BackupPrefix),
	})
	if err != nil {
		return err
	}

	stale := staleBackups(output.Contents, cfg.KeepBackups)
	if len(stale) == 0 {
		logging.Info("No rotation needed", zap.Int("backups", len(output.Contents)), zap.Int("keep", cfg.KeepBackups))
		return nil
	}

	for _, obj := range stale {
		logging.Info("Deleting old backup", zap.String("key", aws.ToString(obj.Key)))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.BackupBucket),
			Key:    obj.Key,
		})
		if err != nil {
			logging.Warn("Deleting old backup failed", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
		}
	}
	return nil
}
