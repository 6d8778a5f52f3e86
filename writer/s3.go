package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

// ParquetRecord is the archived shape of one classified event.
type ParquetRecord struct {
	Symbol     string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Underlying string  `parquet:"name=underlying, type=BYTE_ARRAY, convertedtype=UTF8"`
	Kind       string  `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Flow       string  `parquet:"name=flow, type=BYTE_ARRAY, convertedtype=UTF8"`
	Zone       string  `parquet:"name=zone, type=BYTE_ARRAY, convertedtype=UTF8"`
	Bucket     string  `parquet:"name=bucket, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price      float64 `parquet:"name=price, type=DOUBLE"`
	PriorOI    int64   `parquet:"name=prior_oi, type=INT64"`
	OIDelta    int64   `parquet:"name=oi_delta, type=INT64"`
	OIRocPct   float64 `parquet:"name=oi_roc_pct, type=DOUBLE"`
	Lots       int64   `parquet:"name=lots, type=INT64"`
	Turnover   float64 `parquet:"name=turnover, type=DOUBLE"`
	Timestamp  int64   `parquet:"name=timestamp, type=INT64"`
}

// memoryFileWriter implements the ParquetFile interface over a byte buffer
// so files never touch local disk before upload.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// ArchiveWriter buffers classified events and periodically uploads them to
// S3 as date/hour partitioned parquet files.
type ArchiveWriter struct {
	config      *appconfig.Config
	eventChan   <-chan models.ClassifiedEvent
	s3Client    *s3.Client
	ctx         context.Context
	wg          *sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	log         *logger.Log
	buffer      map[string][]models.ClassifiedEvent
	flushTicker *time.Ticker
	quit        chan struct{}
}

func NewArchiveWriter(cfg *appconfig.Config, eventChan <-chan models.ClassifiedEvent) (*ArchiveWriter, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	w := &ArchiveWriter{
		config:    cfg,
		eventChan: eventChan,
		s3Client:  s3Client,
		wg:        &sync.WaitGroup{},
		log:       log,
	}

	log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 writer initialized")

	return w, nil
}

func (w *ArchiveWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("s3 writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting s3 writer")

	w.buffer = make(map[string][]models.ClassifiedEvent)
	w.quit = make(chan struct{})

	flushInterval := w.config.Storage.S3.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5 * time.Minute
	}
	w.flushTicker = time.NewTicker(flushInterval)

	w.wg.Add(1)
	go w.ingestWorker()

	w.wg.Add(1)
	go w.flushWorker()

	log.Info("s3 writer started successfully")
	return nil
}

// Stop triggers a final flush of the buffered events and waits for the
// workers to finish. The event channel should be closed before calling Stop
// so the ingest worker has drained everything into the buffer.
func (w *ArchiveWriter) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}
	if w.quit != nil {
		close(w.quit)
	}

	w.log.WithComponent("s3_writer").Info("stopping s3 writer")
	w.wg.Wait()
	w.log.WithComponent("s3_writer").Info("s3 writer stopped")
}

func (w *ArchiveWriter) ingestWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{"worker": "ingest"})
	log.Info("starting s3 ingest worker")

	for {
		select {
		case <-w.ctx.Done():
			log.Info("ingest worker stopped due to context cancellation")
			return
		case event, ok := <-w.eventChan:
			if !ok {
				log.Info("archive channel closed, ingest worker stopping")
				return
			}
			w.mu.Lock()
			w.buffer[event.Underlying] = append(w.buffer[event.Underlying], event)
			w.mu.Unlock()
		}
	}
}

func (w *ArchiveWriter) flushWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting flush worker")

	for {
		select {
		case <-w.ctx.Done():
			w.flushBuffers("shutdown")
			log.Info("flush worker stopped due to context cancellation")
			return
		case <-w.quit:
			w.flushBuffers("shutdown")
			log.Info("flush worker stopped")
			return
		case <-w.flushTicker.C:
			w.flushBuffers("interval")
		}
	}
}

func (w *ArchiveWriter) flushBuffers(reason string) {
	w.mu.Lock()
	buffers := w.buffer
	w.buffer = make(map[string][]models.ClassifiedEvent)
	w.mu.Unlock()

	if len(buffers) == 0 {
		return
	}

	w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"flushed_buffers": len(buffers),
		"reason":          reason,
	}).Info("flushing buffers")

	for underlying, events := range buffers {
		if len(events) == 0 {
			continue
		}
		w.processBatch(underlying, events)
	}
}

func (w *ArchiveWriter) processBatch(underlying string, events []models.ClassifiedEvent) {
	batchID := uuid.New().String()
	now := time.Now().UTC()

	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"batch_id":     batchID,
		"underlying":   underlying,
		"record_count": len(events),
		"operation":    "process_batch",
	})
	log.Info("processing batch")

	s3Key := w.generateS3Key(underlying, now)
	log = log.WithFields(logger.Fields{"s3_key": s3Key})

	parquetData, fileSize, err := w.createParquetFile(events)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return
	}

	if err := w.uploadToS3(s3Key, parquetData); err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket, "s3_key": s3Key}).
			Error("failed to upload to S3")
		return
	}

	logger.IncrementS3Write(fileSize)
	log.WithFields(logger.Fields{"file_size": fileSize}).Info("batch processed and uploaded successfully")
}

func (w *ArchiveWriter) generateS3Key(underlying string, ts time.Time) string {
	parts := []string{
		fmt.Sprintf("underlying=%s", underlying),
		fmt.Sprintf("date=%s", ts.Format("2006-01-02")),
		fmt.Sprintf("hour=%02d", ts.Hour()),
		fmt.Sprintf("events_%s_%s.parquet", underlying, ts.Format("20060102150405")),
	}
	if prefix := w.config.Storage.S3.Prefix; prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return filepath.ToSlash(filepath.Join(parts...))
}

func (w *ArchiveWriter) createParquetFile(events []models.ClassifiedEvent) ([]byte, int64, error) {
	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"entries_count": len(events),
		"operation":     "create_parquet_file",
	})
	log.Debug("creating parquet file")

	fw := newMemoryFileWriter()

	pw, err := pqwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, event := range events {
		record := ParquetRecord{
			Symbol:     event.Symbol,
			Underlying: event.Underlying,
			Kind:       string(event.Kind),
			Flow:       event.Flow,
			Zone:       string(event.Zone),
			Bucket:     string(event.Bucket),
			Price:      event.Price,
			PriorOI:    event.PriorOI,
			OIDelta:    event.OIDelta,
			OIRocPct:   event.OIRocPct,
			Lots:       event.Lots,
			Turnover:   event.Turnover,
			Timestamp:  event.Timestamp.UnixMilli(),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, 0, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := fw.Bytes()
	return data, int64(len(data)), nil
}

func (w *ArchiveWriter) uploadToS3(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type": "parquet",
			"compression":  "snappy",
		},
	}

	// Uploads triggered by the shutdown flush must outlive the run context.
	ctx := context.WithoutCancel(w.ctx)
	_, err := w.s3Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
