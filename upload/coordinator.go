package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
)

// DefaultConcurrency bounds simultaneous uploads when no limit is
// configured.
const DefaultConcurrency = 4

// Service is the part of the DAM client the coordinator drives. It is
// satisfied by *damsdk.Client.
type Service interface {
	UploadFile(ctx context.Context, path string, opts *damsdk.UploadOptions) (*damsdk.File, error)
	UploadReader(ctx context.Context, r io.Reader, name string, opts *damsdk.UploadOptions) (*damsdk.File, error)
}

var _ Service = (*damsdk.Client)(nil)

// Config configures a Coordinator. The zero value takes the defaults.
type Config struct {
	// Concurrency bounds simultaneous uploads. Default 4. A batch
	// smaller than the limit uses one worker per item.
	Concurrency int

	// Policy is the retry policy shared by all items. Nil applies
	// DefaultPolicy.
	Policy *Policy

	// Logger receives attempt-level logs. Credentials never appear in
	// them. Default discards everything.
	Logger *zap.Logger

	// OnOutcome observes each outcome as it is recorded, keyed by the
	// item's batch index. Called from worker goroutines; implementations
	// must be safe for concurrent use.
	OnOutcome func(index int, outcome Outcome)
}

// Coordinator runs batches of uploads with bounded concurrency and
// per-item retries. It is safe for concurrent use; batches do not share
// state.
type Coordinator struct {
	svc       Service
	workers   int
	policy    Policy
	logger    *zap.Logger
	onOutcome func(int, Outcome)
}

// NewCoordinator builds a Coordinator over the given upload service.
func NewCoordinator(svc Service, cfg Config) (*Coordinator, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: upload service is required", damsdk.ErrConfig)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("%w: concurrency must not be negative", damsdk.ErrConfig)
	}

	workers := cfg.Concurrency
	if workers == 0 {
		workers = DefaultConcurrency
	}
	policy := DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		svc:       svc,
		workers:   workers,
		policy:    policy,
		logger:    logger,
		onOutcome: cfg.OnOutcome,
	}, nil
}

// Submit uploads all items and blocks until every outcome is recorded.
// The report carries exactly one outcome per item, in input order,
// regardless of completion order; failure of one item never aborts the
// others. Submit itself returns an error only when the batch is
// rejected before any network I/O: an empty batch, or an unreadable
// local file.
//
// Cancelling ctx lets in-flight uploads finish, starts no new items or
// retries, and records cancelled outcomes for items never attempted.
func (c *Coordinator) Submit(ctx context.Context, items []Item) (*Report, error) {
	if err := preflight(items); err != nil {
		return nil, err
	}
	return c.run(ctx, items)
}

// One uploads a single item through the same worker path and returns
// its outcome. Batch-level rejections surface as a validation outcome.
func (c *Coordinator) One(ctx context.Context, item Item) Outcome {
	report, err := c.Submit(ctx, []Item{item})
	if err != nil {
		return Outcome{Err: err, Kind: classify(err)}
	}
	return report.Outcomes[0]
}

// preflight rejects batches no item of which should reach the network:
// empty input, or a file-backed item whose path cannot be read.
func preflight(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty batch", damsdk.ErrValidation)
	}
	for i, item := range items {
		if item.Open != nil {
			if item.Name == "" {
				return fmt.Errorf("%w: item %d: name is required for source-backed items", damsdk.ErrValidation, i)
			}
			continue
		}
		if item.Path == "" {
			return fmt.Errorf("%w: item %d: path is required", damsdk.ErrValidation, i)
		}
		info, err := os.Stat(item.Path)
		if err != nil {
			return fmt.Errorf("%w: item %d: %v", damsdk.ErrValidation, i, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: item %d: %s is a directory", damsdk.ErrValidation, i, item.Path)
		}
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context, items []Item) (*Report, error) {
	n := len(items)
	outcomes := make([]Outcome, n)
	filled := make([]bool, n)

	// The queue is the single synchronized point: workers claim item
	// indices from it, and each outcome slot is written exactly once by
	// the claiming worker.
	queue := make(chan int, n)
	for i := range items {
		queue <- i
	}
	close(queue)

	workers := c.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger := c.logger.With(zap.Int("worker_id", id))
			for {
				select {
				case idx, ok := <-queue:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						outcomes[idx] = cancelledOutcome(ctx)
					} else {
						start := time.Now()
						out := c.process(ctx, logger, idx, items[idx])
						out.Duration = time.Since(start)
						outcomes[idx] = out
					}
					filled[idx] = true
					c.observe(idx, outcomes[idx])
				case <-ctx.Done():
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Indices no worker claimed before cancellation.
	for idx := range queue {
		outcomes[idx] = cancelledOutcome(ctx)
		filled[idx] = true
		c.observe(idx, outcomes[idx])
	}

	for i := range filled {
		if !filled[i] {
			return nil, fmt.Errorf("internal: no outcome recorded for item %d", i)
		}
	}

	return &Report{Outcomes: outcomes}, nil
}

// process runs one item's attempt sequence to a terminal outcome.
func (c *Coordinator) process(ctx context.Context, logger *zap.Logger, idx int, item Item) Outcome {
	name := item.displayName()
	budget := c.policy.MaxRetries
	switch {
	case item.MaxRetries > 0:
		budget = item.MaxRetries
	case item.MaxRetries < 0:
		budget = 0
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= budget+1; attempt++ {
		attempts = attempt
		start := time.Now()

		file, err := c.attempt(ctx, item, name)
		if err == nil {
			logger.Debug("upload succeeded",
				zap.Int("item", idx),
				zap.String("name", name),
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(start)),
			)
			return Outcome{File: file, Attempts: attempt}
		}

		lastErr = err
		logger.Warn("upload attempt failed",
			zap.Int("item", idx),
			zap.String("name", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if !c.policy.retryable(err) {
			return Outcome{Err: err, Kind: classify(err), Attempts: attempt}
		}
		if attempt == budget+1 {
			break
		}

		select {
		case <-time.After(c.policy.backoff(attempt, retryAfterHint(err))):
		case <-ctx.Done():
			// No retries after cancellation; the item keeps the result
			// of its last real attempt.
			return Outcome{Err: lastErr, Kind: classify(lastErr), Attempts: attempt}
		}
	}

	err := fmt.Errorf("retries exhausted after %d attempts: %w", attempts, lastErr)
	logger.Error("upload failed",
		zap.Int("item", idx),
		zap.String("name", name),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return Outcome{Err: err, Kind: KindExhausted, Attempts: attempts}
}

// attempt performs one upload. In-flight attempts are allowed to finish
// after the batch is cancelled, so the call runs on a context detached
// from cancellation; the batch context is honored between attempts and
// during backoff instead.
func (c *Coordinator) attempt(ctx context.Context, item Item, name string) (*damsdk.File, error) {
	callCtx := context.WithoutCancel(ctx)

	opts := &damsdk.UploadOptions{
		FolderID: item.FolderID,
		Metadata: item.Metadata,
	}

	if item.Open != nil {
		src, err := item.Open(callCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: opening source for %s: %v", damsdk.ErrValidation, name, err)
		}
		defer src.Close()
		return c.svc.UploadReader(callCtx, src, name, opts)
	}

	if item.Name != "" {
		opts.OriginalName = item.Name
	}
	return c.svc.UploadFile(callCtx, item.Path, opts)
}

func (c *Coordinator) observe(idx int, o Outcome) {
	if c.onOutcome != nil {
		c.onOutcome(idx, o)
	}
}

func cancelledOutcome(ctx context.Context) Outcome {
	err := context.Cause(ctx)
	if err == nil {
		err = context.Canceled
	}
	return Outcome{
		Err:  fmt.Errorf("batch cancelled before upload: %w", err),
		Kind: KindCancelled,
	}
}
