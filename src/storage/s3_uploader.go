package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cat-board/src/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"
)

// ObjectPutter is the part of the S3 API the uploader needs
type ObjectPutter interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// LogUploader ボードサーバーのログファイルをS3互換ストレージへ送る
type LogUploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *logrus.Logger
	now    func() time.Time
}

// NewLogUploader S3アップローダーを作成
func NewLogUploader(cfg config.S3Config, logger *logrus.Logger) (*LogUploader, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		DisableSSL:       aws.Bool(!cfg.UseSSL),
		S3ForcePathStyle: aws.Bool(true), // MinIOなどのS3互換ストレージ用
	}

	// エンドポイントが指定されている場合（MinIOなど）
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("AWSセッションの作成に失敗: %w", err)
	}

	return NewLogUploaderWithClient(s3.New(sess), cfg.Bucket, logger), nil
}

// NewLogUploaderWithClient 既存のクライアントでアップローダーを作成
func NewLogUploaderWithClient(client ObjectPutter, bucket string, logger *logrus.Logger) *LogUploader {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return &LogUploader{
		client: client,
		bucket: bucket,
		prefix: "catboard/" + host,
		logger: logger,
		now:    time.Now,
	}
}

// ObjectKey ログファイルのS3オブジェクトキー（日付ごとに分ける）
func (u *LogUploader) ObjectKey(filePath string, modTime time.Time) string {
	return fmt.Sprintf("%s/%s/%s", u.prefix, modTime.UTC().Format("2006/01/02"), filepath.Base(filePath))
}

// UploadLogFile ログファイルをS3にアップロード
func (u *LogUploader) UploadLogFile(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("ファイル情報の取得に失敗: %w", err)
	}

	objectKey := u.ObjectKey(filePath, info.ModTime())
	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]*string{
			"upload-time": aws.String(u.now().Format(time.RFC3339)),
			"source":      aws.String("cat-board"),
		},
	})
	if err != nil {
		return fmt.Errorf("S3アップロードに失敗: %w", err)
	}

	u.logger.WithFields(logrus.Fields{
		"file":   filepath.Base(filePath),
		"bucket": u.bucket,
		"key":    objectKey,
		"size":   info.Size(),
	}).Info("ログファイルをS3にアップロードしました")
	return nil
}

// UploadOldLogs maxAgeより古いログをアップロードして削除する。
// active は書き込み中のファイルで、対象から外す。
func (u *LogUploader) UploadOldLogs(ctx context.Context, logDir string, maxAge time.Duration, active string) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return 0, fmt.Errorf("ログディレクトリの読み取りに失敗: %w", err)
	}

	cutoff := u.now().Add(-maxAge)
	uploaded := 0
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		filePath := filepath.Join(logDir, entry.Name())
		if active != "" && filepath.Clean(filePath) == filepath.Clean(active) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := u.UploadLogFile(ctx, filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ログファイルのアップロードに失敗")
			errs = append(errs, err)
			continue
		}
		uploaded++

		if err := os.Remove(filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ローカルファイルの削除に失敗")
			errs = append(errs, err)
		}
	}

	return uploaded, errors.Join(errs...)
}

// Run ctxが終わるまで定期的に古いログをアップロードする
func (u *LogUploader) Run(ctx context.Context, logDir string, interval, maxAge time.Duration, active func() string) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.logger.WithFields(logrus.Fields{
		"interval": interval.String(),
		"max_age":  maxAge.String(),
		"bucket":   u.bucket,
	}).Info("定期的なログアップロードを開始しました")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := u.UploadOldLogs(ctx, logDir, maxAge, active())
			if err != nil {
				u.logger.WithError(err).Error("定期的なログアップロードに失敗")
			}
			u.logger.WithField("uploaded", n).Debug("定期的なログアップロードが完了")
		}
	}
}
