package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
	"github.com/aubreyosenda/dam-sdk-go/internal/checkpoint"
	"github.com/aubreyosenda/dam-sdk-go/internal/config"
	"github.com/aubreyosenda/dam-sdk-go/internal/metrics"
	"github.com/aubreyosenda/dam-sdk-go/internal/progress"
	"github.com/aubreyosenda/dam-sdk-go/internal/source"
	"github.com/aubreyosenda/dam-sdk-go/upload"

	"go.uber.org/zap"
)

// Runner wires the DAM client, the upload coordinator and the
// supporting services for one CLI invocation
type Runner struct {
	cfg        *config.Config
	logger     *zap.Logger
	svc        upload.Service
	checkpoint checkpoint.Store
	metrics    *metrics.Collector
}

// New creates a new runner instance
func New(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	opts := []damsdk.Option{damsdk.WithLogger(logger)}
	if cfg.API.TimeoutMs > 0 {
		opts = append(opts, damsdk.WithTimeout(time.Duration(cfg.API.TimeoutMs)*time.Millisecond))
	}

	client, err := damsdk.New(cfg.API.URL, cfg.API.KeyID, cfg.API.KeySecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create DAM client: %w", err)
	}

	// Create checkpoint store
	checkpointStore, err := checkpoint.NewSQLiteStore(cfg.Upload.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	return &Runner{
		cfg:        cfg,
		logger:     logger,
		svc:        client,
		checkpoint: checkpointStore,
		metrics:    metrics.New(),
	}, nil
}

// RunLocal uploads the given local files and directories
func (r *Runner) RunLocal(ctx context.Context, paths []string) error {
	r.logger.Info("Starting upload",
		zap.Strings("paths", paths),
		zap.String("folder_id", r.cfg.Upload.FolderID),
		zap.Int("concurrency", r.cfg.Upload.Concurrency),
		zap.Bool("dry_run", r.cfg.Upload.DryRun),
	)

	r.startMetricsServer()

	lister := &FileLister{logger: r.logger}
	batch, err := lister.CollectLocal(paths, r.cfg.Upload.FolderID)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	return r.runBatch(ctx, batch)
}

// RunImport uploads every object under the configured source prefix
func (r *Runner) RunImport(ctx context.Context) error {
	if err := r.cfg.ValidateSource(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	src, err := source.NewMinIOClient(source.Config{
		Endpoint:  r.cfg.Source.Endpoint,
		AccessKey: r.cfg.Source.AccessKey,
		SecretKey: r.cfg.Source.SecretKey,
		Secure:    r.cfg.Source.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to create source client: %w", err)
	}

	return r.importFrom(ctx, src)
}

// importFrom drives one import run against an already built source
func (r *Runner) importFrom(ctx context.Context, src source.Client) error {
	r.logger.Info("Starting import",
		zap.String("bucket", r.cfg.Source.Bucket),
		zap.String("prefix", r.cfg.Source.Prefix),
		zap.String("object", r.cfg.Source.Object),
		zap.String("folder_id", r.cfg.Upload.FolderID),
		zap.Int("concurrency", r.cfg.Upload.Concurrency),
		zap.Bool("dry_run", r.cfg.Upload.DryRun),
	)

	r.startMetricsServer()

	lister := &FileLister{logger: r.logger}

	var batch *Batch
	var err error
	if r.cfg.Source.Object != "" {
		// Single object mode
		batch, err = lister.CollectObject(ctx, src, r.cfg.Source.Bucket, r.cfg.Source.Object, r.cfg.Upload.FolderID)
	} else {
		batch, err = lister.CollectBucket(ctx, src, r.cfg.Source.Bucket, r.cfg.Source.Prefix, r.cfg.Upload.FolderID)
	}
	if err != nil {
		return fmt.Errorf("failed to list source objects: %w", err)
	}

	return r.runBatch(ctx, batch)
}

// runBatch drives one batch through the coordinator and records every
// outcome in the checkpoint store and metrics.
func (r *Runner) runBatch(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		r.logger.Info("Nothing to upload")
		return nil
	}

	r.applyMetadata(batch)

	if r.cfg.Upload.DryRun {
		for i, item := range batch.Items {
			r.logger.Info("Would upload",
				zap.String("source", batch.Sources[i]),
				zap.String("name", itemName(item)),
				zap.Int64("size", batch.Sizes[i]),
			)
		}
		return nil
	}

	r.metrics.SetTotalCounts(int64(batch.Len()), batch.TotalBytes)

	// Create progress display if enabled and supported
	var progressDisplay *progress.Display
	if r.cfg.Upload.ShowProgress && progress.IsTerminalSupported() {
		progressDisplay = progress.NewDisplay(r.metrics.GetProgressTracker(), 2*time.Second)
		progressDisplay.Start()
		defer progressDisplay.Stop()
		r.logger.Info("Progress display enabled")
	} else if !r.cfg.Upload.ShowProgress {
		r.logger.Info("Progress display disabled (disabled in config)")
	} else {
		r.logger.Info("Progress display disabled (unsupported terminal)")
	}

	batch = r.filterCompleted(batch)
	if batch.Len() == 0 {
		r.logger.Info("All files already uploaded")
		return nil
	}

	if r.cfg.Upload.Resume {
		if failed, err := r.checkpoint.ListFailedUploads(); err == nil && len(failed) > 0 {
			r.logger.Info("Retrying previously failed uploads",
				zap.Int("failed_records", len(failed)),
			)
		}
	}

	r.markPending(batch)

	policy := &upload.Policy{
		MaxRetries:  r.cfg.Upload.MaxRetries,
		BackoffBase: time.Duration(r.cfg.Upload.RetryBackoffMs) * time.Millisecond,
		MaxBackoff:  time.Duration(r.cfg.Upload.MaxBackoffMs) * time.Millisecond,
	}

	coord, err := upload.NewCoordinator(r.svc, upload.Config{
		Concurrency: r.cfg.Upload.Concurrency,
		Policy:      policy,
		Logger:      r.logger,
		OnOutcome: func(idx int, o upload.Outcome) {
			r.recordOutcome(batch, idx, o)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	workers := r.cfg.Upload.Concurrency
	if workers > batch.Len() {
		workers = batch.Len()
	}
	r.metrics.SetInflightWorkers(workers)
	defer r.metrics.SetInflightWorkers(0)

	report, err := coord.Submit(ctx, batch.Items)
	if err != nil {
		return fmt.Errorf("failed to submit batch: %w", err)
	}

	r.logger.Info("Upload finished",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
	)

	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, report.Len())
	}
	return nil
}

// applyMetadata attaches the configured metadata to every item, without
// overriding keys the lister already set.
func (r *Runner) applyMetadata(batch *Batch) {
	if len(r.cfg.Upload.Metadata) == 0 {
		return
	}
	for i := range batch.Items {
		if batch.Items[i].Metadata == nil {
			batch.Items[i].Metadata = r.cfg.Upload.Metadata
			continue
		}
		for key, value := range r.cfg.Upload.Metadata {
			if _, ok := batch.Items[i].Metadata[key]; !ok {
				batch.Items[i].Metadata[key] = value
			}
		}
	}
}

// filterCompleted drops items whose checkpoint record says they were
// already uploaded. Resume implies the skip even when skip_existing is
// off.
func (r *Runner) filterCompleted(batch *Batch) *Batch {
	if !r.cfg.Upload.SkipExisting && !r.cfg.Upload.Resume {
		return batch
	}

	kept := &Batch{}
	for i, item := range batch.Items {
		record, err := r.checkpoint.GetUpload(batch.Sources[i], item.FolderID)
		if err != nil {
			r.logger.Warn("Checkpoint lookup failed",
				zap.String("source", batch.Sources[i]),
				zap.Error(err),
			)
		}
		if record != nil && record.Status == checkpoint.StatusCompleted {
			r.logger.Debug("Skipping completed upload", zap.String("source", batch.Sources[i]))
			r.metrics.IncSkippedWithBytes(batch.Sizes[i])
			continue
		}
		kept.add(item, batch.Sources[i], batch.Sizes[i])
	}
	return kept
}

func (r *Runner) markPending(batch *Batch) {
	for i, item := range batch.Items {
		record := &checkpoint.UploadRecord{
			Source:   batch.Sources[i],
			FolderID: item.FolderID,
			Name:     itemName(item),
			Size:     batch.Sizes[i],
			Status:   checkpoint.StatusPending,
		}
		if err := r.checkpoint.SaveUpload(record); err != nil {
			r.logger.Warn("Failed to record pending upload",
				zap.String("source", batch.Sources[i]),
				zap.Error(err),
			)
		}
	}
}

// recordOutcome persists one outcome and updates metrics. Called from
// coordinator workers.
func (r *Runner) recordOutcome(batch *Batch, idx int, o upload.Outcome) {
	item := batch.Items[idx]
	size := batch.Sizes[idx]

	record := &checkpoint.UploadRecord{
		Source:   batch.Sources[idx],
		FolderID: item.FolderID,
		Name:     itemName(item),
		Size:     size,
		Attempts: o.Attempts,
	}

	if o.OK() {
		record.Status = checkpoint.StatusCompleted
		record.FileID = o.File.ID
		r.metrics.IncSuccessWithBytes(size)
		r.metrics.AddBytes(size)
		r.metrics.ObserveDuration(o.Duration)
	} else {
		record.Status = checkpoint.StatusFailed
		record.LastError = o.Err.Error()
		r.metrics.IncFailed()
	}

	if err := r.checkpoint.SaveUpload(record); err != nil {
		r.logger.Error("Failed to save checkpoint record",
			zap.String("source", batch.Sources[idx]),
			zap.Error(err),
		)
	}
}

func (r *Runner) startMetricsServer() {
	addr := r.cfg.Upload.MetricsAddr
	if addr == "" {
		return
	}

	go func() {
		if err := r.metrics.StartServer(addr); err != nil {
			r.logger.Error("Failed to start metrics server", zap.Error(err))
		}
	}()
}

// Close cleans up resources
func (r *Runner) Close() error {
	if r.checkpoint != nil {
		r.checkpoint.Close()
	}
	return nil
}

func itemName(item upload.Item) string {
	if item.Name != "" {
		return item.Name
	}
	return filepath.Base(item.Path)
}
