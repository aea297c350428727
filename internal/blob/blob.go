package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	SchemeS3  = "s3"
	SchemeGCS = "gs"
)

var ErrUnsupportedScheme = errors.New("unsupported object store scheme")

// Location addresses one object in a bucket.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// Fetcher downloads whole objects.
type Fetcher interface {
	Fetch(ctx context.Context, loc Location) ([]byte, error)
}

// IsRemote reports whether raw names an object store rather than a local path.
func IsRemote(raw string) bool {
	return strings.HasPrefix(raw, SchemeS3+"://") || strings.HasPrefix(raw, SchemeGCS+"://")
}

// ParseLocation splits s3://bucket/key or gs://bucket/object.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse object location %q: %w", raw, err)
	}
	if u.Scheme != SchemeS3 && u.Scheme != SchemeGCS {
		return Location{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
	}
	loc := Location{
		Scheme: u.Scheme,
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
	}
	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, fmt.Errorf("object location %q needs a bucket and a key", raw)
	}
	return loc, nil
}
