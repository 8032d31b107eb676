// Package objectstore lê e grava journals em S3 ou compatível (MinIO, R2).
// URIs "s3://bucket/key" vão para o bucket; qualquer outra coisa é caminho local.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Options struct {
	Endpoint  string // vazio => endpoint AWS da região
	Region    string
	AccessKey string // vazio => cadeia de credenciais padrão do SDK
	SecretKey string
}

type Client struct {
	s3 *s3.Client
}

func New(ctx context.Context, opts Options) (*Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Client{s3: client}, nil
}

// ParseURI separa "s3://bucket/key". ok=false para caminhos locais.
func ParseURI(uri string) (bucket, key string, ok bool, err error) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false, nil
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("invalid s3 uri %q", uri)
	}
	return bucket, key, true, nil
}

// Open abre o objeto ou arquivo local para leitura. c pode ser nil quando uri é local.
func (c *Client) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, remote, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if !remote {
		return os.Open(uri)
	}
	if c == nil {
		return nil, fmt.Errorf("s3 not configured for %q", uri)
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	return out.Body, nil
}

// Put grava body no objeto.
func (c *Client) Put(ctx context.Context, uri string, body io.Reader) error {
	bucket, key, remote, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if !remote {
		return fmt.Errorf("not an s3 uri: %q", uri)
	}
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", uri, err)
	}
	return nil
}
