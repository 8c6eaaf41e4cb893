package arrowio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/manager"
)

// DefaultBatchSize is the default parquet write batch size
const DefaultBatchSize = 1024

// ParquetOptions contains configuration options for Parquet writes
type ParquetOptions struct {
	// Compression is one of snappy, gzip, zstd or uncompressed
	Compression string
	// BatchSize is the number of rows encoded per batch
	BatchSize int
}

// DefaultParquetOptions returns snappy compression with the default batch size
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   DefaultBatchSize,
	}
}

func codec(name string) (compress.Compression, error) {
	switch name {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errors.NewInvalidInputError("WriteParquet",
			fmt.Sprintf("unknown compression %q", name))
	}
}

// WriteParquet writes m to w as a single-row-group Parquet file. The arrow
// schema is stored alongside so ReadParquet restores dtypes and index fields.
func WriteParquet(w io.Writer, m *manager.Manager, opts ParquetOptions, mem memory.Allocator) error {
	compression, err := codec(opts.Compression)
	if err != nil {
		return err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	rec, err := ToRecord(m, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression),
		parquet.WithBatchSize(int64(opts.BatchSize)),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem), pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing file writer: %w", err)
	}
	return nil
}

// ReadParquet reads a whole Parquet file into a manager
func ReadParquet(ctx context.Context, r io.Reader, mem memory.Allocator) (*manager.Manager, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	table, err := pqarrow.ReadTable(ctx, bytes.NewReader(data), parquet.NewReaderProperties(mem),
		pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	rec, err := tableRecord(table, mem)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return FromRecord(rec)
}

// tableRecord flattens the chunks of every table column into one record
func tableRecord(table arrow.Table, mem memory.Allocator) (arrow.Record, error) {
	arrays := make([]arrow.Array, 0, table.NumCols())
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	for i := range int(table.NumCols()) {
		chunks := table.Column(i).Data().Chunks()
		switch len(chunks) {
		case 0:
			arrays = append(arrays, array.MakeArrayOfNull(mem, table.Schema().Field(i).Type, 0))
			continue
		case 1:
			chunks[0].Retain()
			arrays = append(arrays, chunks[0])
			continue
		}
		arr, err := array.Concatenate(chunks, mem)
		if err != nil {
			return nil, fmt.Errorf("concatenating column %s: %w", table.Schema().Field(i).Name, err)
		}
		arrays = append(arrays, arr)
	}
	return array.NewRecord(table.Schema(), arrays, table.NumRows()), nil
}
