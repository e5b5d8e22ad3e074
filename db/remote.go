// CSV import and export over local paths, HTTP and S3.
package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nickyhof/SheetDB/op"
	"github.com/nickyhof/SheetDB/query"
)

// S3Config holds explicit S3 settings. Empty fields fall back to the
// default AWS credential chain and region.
type S3Config struct {
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"` // S3-compatible endpoint, path-style
}

// WithS3Config sets the S3 settings used by Import and Export.
func WithS3Config(cfg S3Config) Option {
	return func(engine *Engine) {
		engine.s3 = &cfg
	}
}

type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // no scheme, local path
)

func detectScheme(path string) urlScheme {
	lowerPath := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lowerPath, "s3://"):
		return schemeS3
	case strings.HasPrefix(lowerPath, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lowerPath, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lowerPath, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

var errReadOnlyScheme = errors.New("HTTP/HTTPS does not support writing")

// Export writes the table as CSV: the header row followed by every data row
// in physical order.
func (engine *Engine) Export(ctx context.Context, table, url string) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(table, engine.store)
	if err != nil {
		return CommitResult{}, err
	}
	docs, err := tableOp.Snapshot()
	if err != nil {
		return CommitResult{}, err
	}

	out, err := engine.openWriter(ctx, url)
	if err != nil {
		return CommitResult{}, err
	}

	headers := tableOp.Headers()
	writer := csv.NewWriter(out)
	if err := writer.Write(headers); err != nil {
		out.Close()
		return CommitResult{}, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, doc := range docs {
		values := op.Encode(headers, doc.Fields)
		record := make([]string, len(values))
		for i, value := range values {
			record[i] = query.Stringify(value)
		}
		if err := writer.Write(record); err != nil {
			out.Close()
			return CommitResult{}, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		out.Close()
		return CommitResult{}, fmt.Errorf("failed to flush CSV: %w", err)
	}
	if err := out.Close(); err != nil {
		return CommitResult{}, err
	}

	engine.logger.Debug("export", "table", table, "url", url, "rows", len(docs))
	return CommitResult{
		Table:            table,
		RecordsWritten:   len(docs),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// Import reads a CSV whose first record is a header row. The table is
// created from that header when absent; every following record is inserted,
// receiving a generated id when its id cell is empty or missing.
// The table creation and every row are recorded as one commit.
func (engine *Engine) Import(ctx context.Context, table, url string) (CommitResult, error) {
	startTime := time.Now()

	in, err := engine.openReader(ctx, url)
	if err != nil {
		return CommitResult{}, err
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return CommitResult{}, fmt.Errorf("empty CSV: %s", url)
	}
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	result := CommitResult{Table: table}
	err = engine.batched(fmt.Sprintf("Importing %s into %s", url, table), func(store op.Store) error {
		_, created, err := op.CreateTable(table, header, store)
		if err != nil {
			return err
		}
		if created {
			result.TablesCreated = 1
		}

		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read CSV row %d: %w", result.RecordsWritten+2, err)
			}

			data := make(map[string]any, len(header))
			for i, column := range header {
				if i < len(record) {
					data[column] = record[i]
				}
			}
			if _, err := engine.insert(store, table, data); err != nil {
				return err
			}
			result.RecordsWritten++
		}
	})
	if err != nil {
		return CommitResult{}, err
	}

	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	engine.logger.Debug("import", "table", table, "url", url, "rows", result.RecordsWritten)
	return result, nil
}

func (engine *Engine) openReader(ctx context.Context, path string) (io.ReadCloser, error) {
	switch detectScheme(path) {
	case schemeLocal:
		return osOpen(path)
	case schemeFile:
		return osOpen(strings.TrimPrefix(path, "file://"))
	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(ctx, path)
	case schemeS3:
		return openS3Reader(ctx, path, engine.s3)
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

func (engine *Engine) openWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	switch detectScheme(path) {
	case schemeLocal:
		return osCreate(path)
	case schemeFile:
		return osCreate(strings.TrimPrefix(path, "file://"))
	case schemeHTTP, schemeHTTPS:
		return nil, errReadOnlyScheme
	case schemeS3:
		return openS3Writer(ctx, path, engine.s3)
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func openHTTPReader(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(url string) (bucket, key string, err error) {
	path := strings.TrimPrefix(url, "s3://")
	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return bucket, key, nil
}

func newS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func openS3Reader(ctx context.Context, url string, cfg *S3Config) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return resp.Body, nil
}

// s3Writer streams written bytes into a multipart upload running in the
// background. Close waits for the upload to finish.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err := <-w.done; err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func openS3Writer(ctx context.Context, url string, cfg *S3Config) (io.WriteCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	uploader := manager.NewUploader(client)

	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        pr,
			ContentType: aws.String("text/csv"),
		})
		// Unblock a writer still waiting on the pipe.
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// osOpen and osCreate are swapped in tests.
var osOpen = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

var osCreate = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
