// Package imagestore keeps rendered JPEGs in a date-partitioned tree:
// <date>/<storm id>/<kind>.jpg.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

// ImageExt is the file suffix of every stored image.
const ImageExt = ".jpg"

var (
	// ErrNotFound is returned when no image exists for a key.
	ErrNotFound = errors.New("image not found")
	// ErrInvalidKey is returned for malformed dates, storm ids or kinds.
	ErrInvalidKey = errors.New("invalid image key")
)

// Store reads and writes images. Listings are sorted ascending.
//
// Version returns an opaque token that changes whenever the image at key is
// rewritten, possibly by another process.
type Store interface {
	Put(ctx context.Context, key Key, data []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
	Version(ctx context.Context, key Key) (string, error)
	Dates(ctx context.Context) ([]string, error)
	Storms(ctx context.Context, date string) ([]string, error)
	Kinds(ctx context.Context, date, stormID string) ([]domain.PlotKind, error)
	Ping(ctx context.Context) error
}

// Key addresses one image.
type Key struct {
	Date    string
	StormID string
	Kind    domain.PlotKind
}

// NewKey validates and canonicalises the parts of a key. Storm ids are
// accepted in any case; kinds must be known.
func NewKey(date, stormID string, kind domain.PlotKind) (Key, error) {
	if err := ValidateDate(date); err != nil {
		return Key{}, err
	}
	id, err := CanonicalStormID(stormID)
	if err != nil {
		return Key{}, err
	}
	if !kind.Valid() {
		return Key{}, fmt.Errorf("%w: kind %q", ErrInvalidKey, kind)
	}
	return Key{Date: date, StormID: id, Kind: kind}, nil
}

// Validate checks a key built without NewKey.
func (k Key) Validate() error {
	_, err := NewKey(k.Date, k.StormID, k.Kind)
	return err
}

// Path is the slash-separated relative location, e.g. 2024-08-14/AL052024/track.jpg.
func (k Key) Path() string {
	return path.Join(k.Date, k.StormID, string(k.Kind)+ImageExt)
}

func (k Key) String() string {
	return k.Path()
}

// ValidateDate checks a YYYY-MM-DD partition name.
func ValidateDate(date string) error {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil || t.Format(domain.DateLayout) != date {
		return fmt.Errorf("%w: date %q", ErrInvalidKey, date)
	}
	return nil
}

// CanonicalStormID upper-cases and validates an ATCF id such as al052024.
func CanonicalStormID(raw string) (string, error) {
	if strings.ContainsAny(raw, `/\.`) {
		return "", fmt.Errorf("%w: storm id %q", ErrInvalidKey, raw)
	}
	id, err := domain.NormalizeStormID(raw, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return id, nil
}

// kindFromFile maps "track.jpg" to its kind.
func kindFromFile(name string) (domain.PlotKind, bool) {
	stem, ok := strings.CutSuffix(name, ImageExt)
	if !ok {
		return "", false
	}
	k := domain.PlotKind(stem)
	return k, k.Valid()
}

func sortKinds(kinds []domain.PlotKind) {
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
}
