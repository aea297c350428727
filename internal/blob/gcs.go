package blob

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type GCSFetcher struct {
	client *storage.Client
}

// NewGCSFetcher uses the service account key at credentialsFile, or
// application default credentials when it is empty.
func NewGCSFetcher(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GCSFetcher, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSFetcher{client: client}, nil
}

func (f *GCSFetcher) Fetch(ctx context.Context, loc Location) ([]byte, error) {
	log.Debug().Str("location", loc.String()).Msg("Fetching object from GCS")

	reader, err := f.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return data, nil
}

func (f *GCSFetcher) Close() error {
	return f.client.Close()
}
