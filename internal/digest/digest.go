// Package digest fingerprints source files by content.
package digest

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChunkSize is the read size used when hashing files.
const ChunkSize = 1 << 20 // 1 MiB

// File returns the hex MD5 digest of the file at path.
// MD5 identifies content here; it is not used for security.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ResolveSourceFile maps a compiled .pyc path to its .py sibling when the
// sibling exists. Any other path is returned unchanged.
func ResolveSourceFile(path string) string {
	if !strings.HasSuffix(path, ".pyc") {
		return path
	}
	plain := strings.TrimSuffix(path, "c")
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	return path
}
