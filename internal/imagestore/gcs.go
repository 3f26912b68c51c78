package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

const contentTypeJPEG = "image/jpeg"

// GCS stores images as objects in a Cloud Storage bucket using the same
// <date>/<storm>/<kind>.jpg names as the filesystem tree.
type GCS struct {
	bucket *storage.BucketHandle
}

// NewGCS returns a bucket-backed store. The client owns the connection and
// is closed by the caller.
func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{bucket: client.Bucket(bucket)}
}

func (s *GCS) Put(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	w := s.bucket.Object(key.Path()).NewWriter(ctx)
	w.ContentType = contentTypeJPEG
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

func (s *GCS) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(key.Path()).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Version is the object's generation number.
func (s *GCS) Version(ctx context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	attrs, err := s.bucket.Object(key.Path()).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("object attrs %s: %w", key, err)
	}
	return strconv.FormatInt(attrs.Generation, 10), nil
}

func (s *GCS) Dates(ctx context.Context) ([]string, error) {
	prefixes, _, err := s.list(ctx, "")
	if err != nil {
		return nil, err
	}
	return filterPrefixes(prefixes, "", func(n string) bool { return ValidateDate(n) == nil }), nil
}

func (s *GCS) Storms(ctx context.Context, date string) ([]string, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	prefixes, _, err := s.list(ctx, date+"/")
	if err != nil {
		return nil, err
	}
	return filterPrefixes(prefixes, date+"/", func(n string) bool {
		id, err := CanonicalStormID(n)
		return err == nil && id == n
	}), nil
}

func (s *GCS) Kinds(ctx context.Context, date, stormID string) ([]domain.PlotKind, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	id, err := CanonicalStormID(stormID)
	if err != nil {
		return nil, err
	}
	prefix := date + "/" + id + "/"
	_, names, err := s.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var kinds []domain.PlotKind
	for _, n := range names {
		if k, ok := kindFromFile(strings.TrimPrefix(n, prefix)); ok {
			kinds = append(kinds, k)
		}
	}
	sortKinds(kinds)
	return kinds, nil
}

func (s *GCS) Ping(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket attrs: %w", err)
	}
	return nil
}

// list returns the "directory" prefixes and object names one level under prefix.
func (s *GCS) list(ctx context.Context, prefix string) (prefixes, names []string, err error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("list objects %q: %w", prefix, err)
		}
		if attrs.Prefix != "" {
			prefixes = append(prefixes, attrs.Prefix)
			continue
		}
		names = append(names, attrs.Name)
	}
	return prefixes, names, nil
}

// filterPrefixes strips parent and the trailing slash from each prefix and
// keeps the names accepted by keep, sorted.
func filterPrefixes(prefixes []string, parent string, keep func(string) bool) []string {
	var out []string
	for _, p := range prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(p, parent), "/")
		if name != "" && keep(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
