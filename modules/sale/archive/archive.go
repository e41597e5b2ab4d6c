// Package archive moves old terminal invoices out of the hot store into
// parquet files on S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gaze-network/batchsale/pkg/parquetutils"
	"github.com/samber/lo"
)

const (
	DefaultRetention = 30 * 24 * time.Hour
	DefaultBatchSize = 1000

	contentType = "application/vnd.apache.parquet"
)

type Config struct {
	Enabled   bool          `mapstructure:"enabled"`
	Bucket    string        `mapstructure:"bucket"`
	Prefix    string        `mapstructure:"prefix"`
	Region    string        `mapstructure:"region"`
	Endpoint  string        `mapstructure:"endpoint"` // S3 compatible storage, path style
	Retention time.Duration `mapstructure:"retention"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// Uploader stores one object.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body []byte) error
}

type S3Uploader struct {
	uploader *manager.Uploader
}

func NewS3Uploader(ctx context.Context, conf Config) (*S3Uploader, error) {
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws config")
	}
	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{uploader: manager.NewUploader(client)}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, bucket, key string, body []byte) error {
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload s3://%s/%s", bucket, key)
	}
	return nil
}

// Archiver archives SETTLED invoices with a transfer artifact and EXPIRED
// invoices once they are older than the retention window. SETTLEMENT_FAILED
// invoices stay in the store for the operator.
type Archiver struct {
	store    datagateway.SaleDataGateway
	uploader Uploader
	config   Config
	now      func() time.Time
}

func New(store datagateway.SaleDataGateway, uploader Uploader, conf Config) *Archiver {
	if conf.Retention <= 0 {
		conf.Retention = DefaultRetention
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = DefaultBatchSize
	}
	return &Archiver{
		store:    store,
		uploader: uploader,
		config:   conf,
		now:      time.Now,
	}
}

func (a *Archiver) Name() string {
	return "invoice_archiver"
}

// Process archives batches until no archivable invoice is left.
func (a *Archiver) Process(ctx context.Context) error {
	for {
		n, err := a.ArchiveBatch(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n < a.config.BatchSize {
			return nil
		}
	}
}

// ArchiveBatch archives one batch and returns its size. Rows stay locked for
// the duration, so concurrent archivers never export the same invoice. The
// upload happens before the delete is committed; a failed commit leaves a
// duplicate object behind, never a lost invoice.
func (a *Archiver) ArchiveBatch(ctx context.Context) (int, error) {
	now := a.now()
	tx, err := a.store.BeginSaleTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback archive transaction", slogx.Error(err))
		}
	}()

	invoices, err := tx.GetArchivableInvoices(ctx, now.Add(-a.config.Retention), a.config.BatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get archivable invoices")
	}
	if len(invoices) == 0 {
		return 0, nil
	}

	data, err := parquetutils.WriteAll(lo.Map(invoices, func(inv *entity.Invoice, _ int) InvoiceRecord {
		return mapInvoiceToRecord(inv)
	}))
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode invoices")
	}

	key := path.Join(a.config.Prefix, now.UTC().Format("2006/01/02"), fmt.Sprintf("invoices-%s.parquet", invoices[0].ID))
	if err := a.uploader.Upload(ctx, a.config.Bucket, key, data); err != nil {
		return 0, errors.WithStack(err)
	}

	ids := lo.Map(invoices, func(inv *entity.Invoice, _ int) string { return inv.ID })
	deleted, err := tx.DeleteInvoices(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete archived invoices")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "failed to commit archive transaction")
	}

	logger.InfoContext(ctx, "archived invoices",
		slogx.Int("count", len(invoices)),
		slogx.Int64("deleted", deleted),
		slogx.String("key", key),
	)
	return len(invoices), nil
}
