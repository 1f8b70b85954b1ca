package pgsbuilder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// IsGoogleStoragePath reports whether path is a gs:// URL.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// SplitGoogleStoragePath splits gs://bucket/object into its bucket and object
// names.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// JoinPath joins a file name onto a local directory or a gs:// prefix.
func JoinPath(dir, name string) string {
	if IsGoogleStoragePath(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}

	return filepath.Join(dir, name)
}

// Open opens a local file or, if client is non-nil and the path starts with
// gs://, a Google Storage object. Compressed inputs are decompressed
// transparently. A missing local file yields an error satisfying
// errors.Is(err, os.ErrNotExist), as does a missing storage object.
func Open(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	var rc io.ReadCloser

	if client != nil && IsGoogleStoragePath(path) {
		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, pfx.Err(err)
		}

		r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
		if err == storage.ErrObjectNotExist {
			return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		rc = r
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		rc = f
	}

	out, err := MaybeDecompressReadCloser(rc)
	if err != nil {
		rc.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}

// ReadAll opens path with Open and returns its (decompressed) contents.
func ReadAll(ctx context.Context, path string, client *storage.Client) ([]byte, error) {
	rc, err := Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Exists reports whether a local path (or gs:// object, given a client) is
// present. Errors other than non-existence are reported as present so that the
// subsequent open surfaces them.
func Exists(ctx context.Context, path string, client *storage.Client) bool {
	if client != nil && IsGoogleStoragePath(path) {
		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return false
		}
		_, err = client.Bucket(bucketName).Object(objectName).Attrs(ctx)
		return err != storage.ErrObjectNotExist
	}

	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
