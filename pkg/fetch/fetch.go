// Package fetch materializes remote stack sources on local disk so the
// resolver can treat every source as a file path.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-sarnet/pkg/logging"
)

// IsRemote reports whether the source needs fetching before use.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "s3://")
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher downloads s3:// sources into a local directory.
type Fetcher struct {
	client objectGetter
	log    logging.Logger
}

// New builds a fetcher using the ambient AWS configuration.
func New(ctx context.Context, log logging.Logger) (*Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Fetcher{client: s3.NewFromConfig(cfg), log: log}, nil
}

// NewWithClient builds a fetcher around an existing client.
func NewWithClient(client objectGetter, log logging.Logger) *Fetcher {
	return &Fetcher{client: client, log: log}
}

// Fetch downloads source into dir and returns the local path.
func (f *Fetcher) Fetch(ctx context.Context, source, dir string) (string, error) {
	bucket, key, err := splitS3URL(source)
	if err != nil {
		return "", err
	}

	f.log.Info("Fetching remote source", logging.Source(source))

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	local := filepath.Join(dir, path.Base(key))
	file, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", local, err)
	}

	n, err := io.Copy(file, out.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(local)
		return "", fmt.Errorf("failed to write %s: %w", local, err)
	}

	f.log.Info("Fetched remote source", logging.Path(local), logging.Count("bytes", int(n)))
	return local, nil
}

func splitS3URL(source string) (bucket, key string, err error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme != "s3" || u.Host == "" || u.Path == "/" || u.Path == "" {
		return "", "", fmt.Errorf("invalid s3 source %q", source)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
