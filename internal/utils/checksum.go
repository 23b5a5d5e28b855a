package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileMD5 returns the hex MD5 of a file, which is the etag of a single-part upload.
func FileMD5(path string) (sum string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close failed: %w", cerr)
		}
	}()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsMultipartETag reports whether an etag was produced by a multipart upload
// ("<md5>-<parts>"), in which case it is not a content MD5.
func IsMultipartETag(etag string) bool {
	return strings.Contains(etag, "-")
}
