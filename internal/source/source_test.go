package source

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/colgroup/internal/config"
	cgerrors "github.com/arkilian/colgroup/internal/errors"
	"github.com/arkilian/colgroup/internal/storage"
	"github.com/arkilian/colgroup/pkg/partition"
	"github.com/arkilian/colgroup/pkg/stream"
	"github.com/arkilian/colgroup/pkg/types"
)

const vocabCSV = "verbs,,,adjectives,,\n" +
	"おどろく,to be surprised,驚く,はやい,fast/quick,早い\n"

func localStore(t *testing.T, files map[string][]byte) *storage.LocalStorage {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, data, 0644))
	}
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return store
}

// remoteStore hides the concrete LocalStorage type so sources take the
// download path they use for S3.
type remoteStore struct {
	storage.ObjectStorage
	downloads int
}

func (r *remoteStore) Download(ctx context.Context, objectPath, localPath string) error {
	r.downloads++
	return r.ObjectStorage.Download(ctx, objectPath, localPath)
}

func drain(t *testing.T, s stream.Stream) []types.Record {
	t.Helper()
	var out []types.Record
	var buf types.Record
	for {
		more, err := s.Next(&buf)
		require.NoError(t, err)
		if !more {
			return out
		}
		out = append(out, buf.Clone())
	}
}

func csvConfig(path string) config.SourceConfig {
	cfg := config.DefaultConfig().Source
	cfg.Path = path
	return cfg
}

func TestOpen_CSV(t *testing.T) {
	store := localStore(t, map[string][]byte{"vocab.csv": []byte(vocabCSV)})

	src, err := Open(context.Background(), csvConfig("vocab.csv"), store, nil)
	require.NoError(t, err)
	defer src.Close()

	h, err := src.Stream.Headers()
	require.NoError(t, err)
	require.Equal(t, "adjectives", h[3])
	require.Len(t, drain(t, src.Stream), 1)
	require.Equal(t, config.FormatCSV, src.Format)
}

func TestOpen_CSVSnappy(t *testing.T) {
	var compressed bytes.Buffer
	w := snappy.NewBufferedWriter(&compressed)
	_, err := w.Write([]byte(vocabCSV))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	store := localStore(t, map[string][]byte{"vocab.csv.sz": compressed.Bytes()})
	cfg := csvConfig("vocab.csv.sz")
	cfg.Compression = "snappy"

	src, err := Open(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, []types.Record{{"おどろく", "to be surprised", "驚く", "はやい", "fast/quick", "早い"}}, drain(t, src.Stream))
}

func TestOpen_CSVPaddedVocab(t *testing.T) {
	padded := "verbs,,,adjectives,,\n" +
		"おどろく , to be surprised , 驚く ,はやい, fast/quick ,早い\n"
	store := localStore(t, map[string][]byte{"vocab.csv": []byte(padded)})

	src, err := Open(context.Background(), csvConfig("vocab.csv"), store, nil)
	require.NoError(t, err)
	defer src.Close()

	p, err := partition.FromHeader(src.Stream)
	require.NoError(t, err)
	g, ok := p.CreateGroup(0)
	require.True(t, ok)
	it, err := g.Rows()
	require.NoError(t, err)
	defer it.Close()

	row, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, []string{"おどろく", "to be surprised", "驚く"}, row.Fields())
}

func TestOpen_CSVHeaderless(t *testing.T) {
	store := localStore(t, map[string][]byte{"rows.tsv": []byte("a\tb\nc\td\n")})
	cfg := csvConfig("rows.tsv")
	cfg.HasHeader = false
	cfg.Delimiter = "\t"

	src, err := Open(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	defer src.Close()

	require.False(t, stream.HasHeaders(src.Stream))
	require.Equal(t, []types.Record{{"a", "b"}, {"c", "d"}}, drain(t, src.Stream))
}

func TestOpen_Arrow(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "kana", Type: arrow.BinaryTypes.String},
		{Name: "meaning", Type: arrow.BinaryTypes.String},
	}, nil)

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	b := array.NewRecordBuilder(mem, schema)
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"しぬ"}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"to die"}, nil)
	rec := b.NewRecord()
	require.NoError(t, w.Write(rec))
	rec.Release()
	b.Release()
	require.NoError(t, w.Close())

	store := localStore(t, map[string][]byte{"words.arrow": buf.Bytes()})
	cfg := csvConfig("words.arrow")
	cfg.Format = config.FormatArrow

	src, err := Open(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	defer src.Close()

	h, err := src.Stream.Headers()
	require.NoError(t, err)
	require.Equal(t, types.Record{"kana", "meaning"}, h)
	require.Equal(t, []types.Record{{"しぬ", "to die"}}, drain(t, src.Stream))
}

func writeSQLite(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE vocab (kana TEXT, meaning TEXT, kanji TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO vocab VALUES ('はやい', 'fast/quick', '早い'), ('しぬ', 'to die', NULL)`)
	require.NoError(t, err)
}

func TestOpen_SQLiteLocal(t *testing.T) {
	store := localStore(t, nil)
	writeSQLite(t, store.LocalPath("words.db"))

	cfg := csvConfig("words.db")
	cfg.Format = config.FormatSQLite
	cfg.Query = "SELECT kana, meaning, kanji FROM vocab ORDER BY rowid"

	src, err := Open(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, []types.Record{
		{"はやい", "fast/quick", "早い"},
		{"しぬ", "to die", ""},
	}, drain(t, src.Stream))
}

func TestOpen_SQLiteRemoteDownloads(t *testing.T) {
	local := localStore(t, nil)
	writeSQLite(t, local.LocalPath("words.db"))
	remote := &remoteStore{ObjectStorage: local}

	cfg := csvConfig("words.db")
	cfg.Format = config.FormatSQLite
	cfg.Query = "SELECT kana FROM vocab ORDER BY rowid"

	src, err := Open(context.Background(), cfg, remote, nil)
	require.NoError(t, err)
	require.Equal(t, 1, remote.downloads)
	require.Len(t, drain(t, src.Stream), 2)
	require.NoError(t, src.Close())
}

func TestOpen_Errors(t *testing.T) {
	store := localStore(t, map[string][]byte{"vocab.csv": []byte(vocabCSV), "junk.arrow": []byte("not arrow")})
	ctx := context.Background()

	t.Run("missing object", func(t *testing.T) {
		_, err := Open(ctx, csvConfig("absent.csv"), store, nil)
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("missing sqlite", func(t *testing.T) {
		cfg := csvConfig("absent.db")
		cfg.Format = config.FormatSQLite
		cfg.Query = "SELECT 1"
		_, err := Open(ctx, cfg, store, nil)
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("missing remote sqlite is not downloaded", func(t *testing.T) {
		remote := &remoteStore{ObjectStorage: store}
		cfg := csvConfig("absent.db")
		cfg.Format = config.FormatSQLite
		cfg.Query = "SELECT 1"
		_, err := Open(ctx, cfg, remote, nil)
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
		require.Equal(t, cgerrors.ErrCategoryStorage, cgerrors.GetCategory(err))
		require.Zero(t, remote.downloads)
	})

	t.Run("unsupported format", func(t *testing.T) {
		cfg := csvConfig("vocab.csv")
		cfg.Format = "parquet"
		_, err := Open(ctx, cfg, store, nil)
		require.Equal(t, cgerrors.CodeUnsupportedFormat, cgerrors.GetCode(err))
	})

	t.Run("unsupported compression", func(t *testing.T) {
		cfg := csvConfig("vocab.csv")
		cfg.Compression = "lz4"
		_, err := Open(ctx, cfg, store, nil)
		require.Equal(t, cgerrors.CodeUnsupportedFormat, cgerrors.GetCode(err))
	})

	t.Run("corrupt arrow", func(t *testing.T) {
		cfg := csvConfig("junk.arrow")
		cfg.Format = config.FormatArrow
		_, err := Open(ctx, cfg, store, nil)
		require.ErrorIs(t, err, partition.ErrStreamError)
	})
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStorage(context.Background(), config.StorageConfig{Type: "local", Path: dir})
	require.NoError(t, err)
	require.IsType(t, &storage.LocalStorage{}, store)

	_, err = NewStorage(context.Background(), config.StorageConfig{Type: "ftp"})
	require.Equal(t, cgerrors.ErrCategoryConfig, cgerrors.GetCategory(err))
}

func TestNewPartition(t *testing.T) {
	vocab := func() stream.Stream {
		return stream.NewSliceStream(
			types.Record{"verbs", "", "", "adjectives", "", ""},
			[]types.Record{{"おどろく", "to be surprised", "驚く", "はやい", "fast/quick", "早い"}},
		)
	}

	t.Run("equal", func(t *testing.T) {
		p, err := NewPartition(vocab(), config.PartitionConfig{Mode: config.ModeEqual, Groups: 3})
		require.NoError(t, err)
		require.Equal(t, 3, p.GroupCount())
	})

	t.Run("custom", func(t *testing.T) {
		p, err := NewPartition(vocab(), config.PartitionConfig{
			Mode: config.ModeCustom,
			Ranges: []config.RangeConfig{
				{Name: "kana", Lower: 0, Upper: 1},
				{Name: "kanji", Lower: 2, Upper: 3},
			},
		})
		require.NoError(t, err)
		named := p.NamedRanges()
		require.Equal(t, "kanji", named[1].Name)
		require.Equal(t, types.MustNewRange(2, 3), named[1].Range)
	})

	t.Run("custom invalid range", func(t *testing.T) {
		_, err := NewPartition(vocab(), config.PartitionConfig{
			Mode:   config.ModeCustom,
			Ranges: []config.RangeConfig{{Lower: 3, Upper: 3}},
		})
		require.ErrorIs(t, err, types.ErrInvalidRange)
	})

	t.Run("custom overlap", func(t *testing.T) {
		_, err := NewPartition(vocab(), config.PartitionConfig{
			Mode:   config.ModeCustom,
			Ranges: []config.RangeConfig{{Lower: 0, Upper: 3}, {Lower: 2, Upper: 5}},
		})
		require.ErrorIs(t, err, partition.ErrRangeOverlap)
	})

	t.Run("header", func(t *testing.T) {
		p, err := NewPartition(vocab(), config.PartitionConfig{Mode: config.ModeHeader})
		require.NoError(t, err)
		require.Equal(t, "adjectives", p.NamedRanges()[1].Name)
	})

	t.Run("bad mode", func(t *testing.T) {
		_, err := NewPartition(vocab(), config.PartitionConfig{Mode: "zigzag"})
		require.Equal(t, cgerrors.ErrCategoryConfig, cgerrors.GetCategory(err))
	})
}
