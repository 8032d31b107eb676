package objectstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri         string
		bucket, key string
		remote      bool
		wantErr     bool
	}{
		{uri: "s3://journals/2024/ledger.jsonl", bucket: "journals", key: "2024/ledger.jsonl", remote: true},
		{uri: "/var/lib/ledger.jsonl"},
		{uri: "ledger.jsonl"},
		{uri: "s3://journals", remote: true, wantErr: true},
		{uri: "s3:///key", remote: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, remote, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if remote != tt.remote || bucket != tt.bucket || key != tt.key {
				t.Fatalf("got %q %q %v", bucket, key, remote)
			}
		})
	}
}

func TestOpenLocalWithoutClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var c *Client
	rc, err := c.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "{}\n" {
		t.Fatalf("read %q", b)
	}

	if _, err := c.Open(context.Background(), "s3://b/k"); err == nil {
		t.Fatal("want error without client")
	}
}
