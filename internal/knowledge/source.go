package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDocumentBytes bounds a single knowledge document.
const maxDocumentBytes = 4 << 20

// Source fetches a named knowledge document.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FileSource reads documents from a directory. Absolute names bypass Dir.
type FileSource struct {
	Dir string
}

func (s FileSource) Fetch(_ context.Context, name string) ([]byte, error) {
	p := name
	if !filepath.IsAbs(p) && s.Dir != "" {
		p = filepath.Join(s.Dir, name)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("knowledge: read %s: %w", p, err)
	}
	return data, nil
}

// HTTPSource fetches documents relative to BaseURL, or by absolute URL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := name
	if !strings.HasPrefix(name, "http://") && !strings.HasPrefix(name, "https://") {
		url = strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(name, "/")
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("knowledge: fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", url, err)
	}
	return data, nil
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads documents from Bucket under Prefix.
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
}

func (s S3Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	if s.Client == nil || s.Bucket == "" {
		return nil, errors.New("knowledge: s3 source not configured")
	}
	key := name
	if s.Prefix != "" {
		key = path.Join(s.Prefix, name)
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.Bucket, key)
		}
		return nil, fmt.Errorf("knowledge: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("knowledge: s3 read %s: %w", key, err)
	}
	return data, nil
}
