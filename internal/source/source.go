// Package source turns a Config into an open record stream and a
// partition over it.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/arkilian/colgroup/internal/config"
	cgerrors "github.com/arkilian/colgroup/internal/errors"
	"github.com/arkilian/colgroup/internal/storage"
	"github.com/arkilian/colgroup/pkg/partition"
	"github.com/arkilian/colgroup/pkg/stream"
	"github.com/arkilian/colgroup/pkg/types"
)

// Source is an open stream plus the resources that back it.
type Source struct {
	Stream stream.Stream
	Format string
	Path   string

	closers []func() error
}

// Close releases everything the source opened, most recent first.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Source) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// NewStorage creates the object storage described by cfg.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case "", "local":
		return storage.NewLocalStorage(cfg.Path)
	case "s3":
		return storage.NewS3Storage(ctx, cfg.S3.Bucket, storage.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return nil, cgerrors.NewConfigError(fmt.Sprintf("invalid storage type: %s", cfg.Type))
	}
}

// Open opens cfg.Path from store and decodes it as cfg.Format.
func Open(ctx context.Context, cfg config.SourceConfig, store storage.ObjectStorage, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := &Source{Format: cfg.Format, Path: cfg.Path}

	var open func() error
	switch cfg.Format {
	case config.FormatCSV, "":
		open = func() error { return src.openCSV(ctx, cfg, store) }
	case config.FormatArrow:
		open = func() error { return src.openArrow(ctx, cfg, store) }
	case config.FormatSQLite:
		open = func() error { return src.openSQLite(ctx, cfg, store, logger) }
	default:
		return nil, cgerrors.New(cgerrors.ErrCategoryStream, cgerrors.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported source format %q", cfg.Format))
	}

	// Check first so a missing object fails before any download or temp dir.
	exists, err := store.Exists(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, cgerrors.NewStorageError(cgerrors.CodeObjectNotFound, "source object not found", nil).
			WithDetails(map[string]interface{}{"path": cfg.Path})
	}

	if err := open(); err != nil {
		src.Close()
		return nil, err
	}

	logger.Debug("source opened",
		zap.String("path", cfg.Path),
		zap.String("format", src.Format),
		zap.Bool("has_headers", stream.HasHeaders(src.Stream)),
	)
	return src, nil
}

func (s *Source) openCSV(ctx context.Context, cfg config.SourceConfig, store storage.ObjectStorage) error {
	r, err := store.Open(ctx, cfg.Path)
	if err != nil {
		return err
	}
	s.onClose(r.Close)

	opts := stream.DefaultCSVOptions()
	for _, c := range cfg.Delimiter {
		opts.Comma = c
		break
	}
	opts.HasHeader = cfg.HasHeader
	opts.TrimSpace = cfg.TrimSpace
	if cfg.Compression != "" {
		opts.Compression = stream.Compression(cfg.Compression)
	}

	cs, err := stream.NewCSVStream(r, opts)
	if err != nil {
		return cgerrors.New(cgerrors.ErrCategoryStream, cgerrors.CodeUnsupportedFormat, err.Error())
	}
	s.Format = config.FormatCSV
	s.Stream = cs
	return nil
}

func (s *Source) openArrow(ctx context.Context, cfg config.SourceConfig, store storage.ObjectStorage) error {
	r, err := store.Open(ctx, cfg.Path)
	if err != nil {
		return err
	}
	s.onClose(r.Close)

	as, err := stream.NewArrowStream(r, nil)
	if err != nil {
		return cgerrors.NewStreamError("failed to open arrow source", err)
	}
	s.onClose(as.Close)
	s.Stream = as
	return nil
}

// openSQLite needs a file on disk. Local objects are opened in place;
// remote ones are downloaded to a temporary directory removed on Close.
func (s *Source) openSQLite(ctx context.Context, cfg config.SourceConfig, store storage.ObjectStorage, logger *zap.Logger) error {
	var dbPath string
	if local, ok := store.(*storage.LocalStorage); ok {
		dbPath = local.LocalPath(cfg.Path)
	} else {
		dir, err := os.MkdirTemp("", "colgroup-sqlite-")
		if err != nil {
			return cgerrors.NewInternalError("failed to create temp dir", err)
		}
		s.onClose(func() error { return os.RemoveAll(dir) })

		dbPath = filepath.Join(dir, path.Base(cfg.Path))
		if err := store.Download(ctx, cfg.Path, dbPath); err != nil {
			return err
		}
		logger.Debug("sqlite source downloaded", zap.String("path", cfg.Path), zap.String("local_path", dbPath))
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return cgerrors.NewStreamError("failed to open sqlite source", err)
	}
	s.onClose(db.Close)
	db.SetMaxOpenConns(1)

	ss, err := stream.QuerySQL(ctx, db, cfg.Query)
	if err != nil {
		return cgerrors.NewStreamError("failed to query sqlite source", err)
	}
	s.onClose(ss.Close)
	s.Stream = ss
	return nil
}

// NewPartition builds the partition cfg describes over s.
func NewPartition(s stream.Stream, cfg config.PartitionConfig, opts ...partition.Option) (*partition.Partition, error) {
	switch cfg.Mode {
	case config.ModeEqual, "":
		return partition.New(s, cfg.Groups, opts...)

	case config.ModeCustom:
		ranges := make([]types.NamedRange, len(cfg.Ranges))
		for i, rc := range cfg.Ranges {
			rng, err := types.NewRange(rc.Lower, rc.Upper)
			if err != nil {
				return nil, err
			}
			ranges[i] = types.NamedRange{Name: rc.Name, Range: rng}
		}
		return partition.WithNamedRanges(s, ranges, opts...)

	case config.ModeHeader:
		return partition.FromHeader(s, opts...)

	default:
		return nil, cgerrors.NewConfigError(fmt.Sprintf("invalid partition mode: %s", cfg.Mode))
	}
}

var _ io.Closer = (*Source)(nil)
