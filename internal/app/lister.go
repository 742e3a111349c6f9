package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aubreyosenda/dam-sdk-go/internal/source"
	"github.com/aubreyosenda/dam-sdk-go/upload"

	"go.uber.org/zap"
)

// Batch pairs coordinator items with the bookkeeping the runner needs:
// the checkpoint key and byte size of every item, index-aligned with
// Items.
type Batch struct {
	Items      []upload.Item
	Sources    []string
	Sizes      []int64
	TotalBytes int64
}

// Len returns the number of items in the batch
func (b *Batch) Len() int {
	return len(b.Items)
}

func (b *Batch) add(item upload.Item, source string, size int64) {
	b.Items = append(b.Items, item)
	b.Sources = append(b.Sources, source)
	b.Sizes = append(b.Sizes, size)
	b.TotalBytes += size
}

// FileLister builds upload batches from local paths or an S3 source
type FileLister struct {
	logger *zap.Logger
}

// CollectLocal expands the given paths into a batch. Directories are
// walked recursively and every regular file becomes one item.
func (l *FileLister) CollectLocal(paths []string, folderID string) (*Batch, error) {
	batch := &Batch{}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		if !info.IsDir() {
			batch.add(upload.Item{Path: abs, FolderID: folderID}, abs, info.Size())
			continue
		}

		err = filepath.WalkDir(abs, func(filePath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			batch.add(upload.Item{Path: filePath, FolderID: folderID}, filePath, fi.Size())
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	l.logger.Info("Finished listing files",
		zap.Int("total_files", batch.Len()),
		zap.Int64("total_size_bytes", batch.TotalBytes),
	)

	return batch, nil
}

// CollectObject builds a single-item batch for one object, verified
// with a head request before any upload starts.
func (l *FileLister) CollectObject(ctx context.Context, src source.Client, bucket, key, folderID string) (*Batch, error) {
	info, err := src.HeadObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object info for %s: %w", key, err)
	}

	origin := "s3://" + bucket + "/" + key
	meta := map[string]string{"source": origin}
	if info.ETag != "" {
		meta["etag"] = info.ETag
	}

	batch := &Batch{}
	batch.add(upload.Item{
		Name:     path.Base(key),
		FolderID: folderID,
		Metadata: meta,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return src.GetObject(ctx, bucket, key)
		},
	}, origin, info.Size)

	return batch, nil
}

// CollectBucket drains the source listing into a batch. Each object
// becomes a reader-backed item that re-opens the object on every
// attempt.
func (l *FileLister) CollectBucket(ctx context.Context, src source.Client, bucket, prefix, folderID string) (*Batch, error) {
	objCh, errCh := src.ListObjects(ctx, bucket, prefix)

	batch := &Batch{}
	for {
		select {
		case obj, ok := <-objCh:
			if !ok {
				// Both channels close together; a listing error may
				// still be buffered.
				if err := <-errCh; err != nil {
					return nil, fmt.Errorf("error listing objects: %w", err)
				}
				l.logger.Info("Finished listing objects",
					zap.Int("total_objects", batch.Len()),
					zap.Int64("total_size_bytes", batch.TotalBytes),
				)
				return batch, nil
			}

			key := obj.Key
			origin := "s3://" + bucket + "/" + key
			meta := map[string]string{"source": origin}
			if obj.ETag != "" {
				meta["etag"] = obj.ETag
			}

			item := upload.Item{
				Name:     path.Base(key),
				FolderID: folderID,
				Metadata: meta,
				Open: func(ctx context.Context) (io.ReadCloser, error) {
					return src.GetObject(ctx, bucket, key)
				},
			}
			batch.add(item, origin, obj.Size)

		case err := <-errCh:
			if err != nil {
				return nil, fmt.Errorf("error listing objects: %w", err)
			}

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
