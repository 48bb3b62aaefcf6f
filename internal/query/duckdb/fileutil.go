package duckdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var parquetMagic = []byte("PAR1")

var errNotParquet = errors.New("object is not a parquet file")

// stageParquetFile copies a dataset object to path through a temporary file
// in the same directory, so a view never points at a partial download. The
// copy is rejected unless it starts and ends with the parquet magic bytes.
func stageParquetFile(path string, reader io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".staging-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, reader)
	if err != nil {
		return 0, err
	}
	if err := checkParquetMagic(tmp, written); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, err
	}
	committed = true
	return written, nil
}

func checkParquetMagic(file io.ReaderAt, size int64) error {
	magicLen := int64(len(parquetMagic))
	if size < 2*magicLen {
		return fmt.Errorf("%w: %d bytes", errNotParquet, size)
	}
	head := make([]byte, magicLen)
	tail := make([]byte, magicLen)
	if _, err := file.ReadAt(head, 0); err != nil {
		return err
	}
	if _, err := file.ReadAt(tail, size-magicLen); err != nil {
		return err
	}
	if !bytes.Equal(head, parquetMagic) || !bytes.Equal(tail, parquetMagic) {
		return errNotParquet
	}
	return nil
}
