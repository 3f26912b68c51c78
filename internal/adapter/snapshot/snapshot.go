// Package snapshot stores fetch results as zstd-compressed msgpack files so a
// batch run can be repeated offline against the same upstream data.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Ext is the snapshot file suffix.
const Ext = ".msgpack.zst"

// Path returns the snapshot file for a source under dir, e.g. data_hafs.msgpack.zst.
func Path(dir, source string) string {
	return filepath.Join(dir, "data_"+source+Ext)
}

// Save writes v to path, replacing any previous snapshot.
func Save(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := msgpack.NewEncoder(zw)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		zw.Close()
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	} else if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	} else if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load decodes the snapshot at path into v.
func Load(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return nil
}

// LoadOrFetch returns the snapshot at path when it can be read. Otherwise it
// calls fetch and saves the result; a failed save is logged, not returned.
func LoadOrFetch[T any](ctx context.Context, logger *slog.Logger, path string, fetch func(context.Context) (T, error)) (T, error) {
	var v T
	err := Load(path, &v)
	if err == nil {
		logger.Debug("loaded snapshot", "path", path)
		return v, nil
	}
	logger.Info("snapshot unavailable, fetching", "path", path, "error", err)

	v, err = fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := Save(path, v); err != nil {
		logger.Warn("failed to save snapshot", "path", path, "error", err)
	}
	return v, nil
}
