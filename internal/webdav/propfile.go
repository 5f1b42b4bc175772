package webdav

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Propfile renders the property descriptor the library expects next to every
// uploaded blob. The descriptor must be uploaded under the same identifier as
// the blob ("<key>.prop" next to "<key>.zip"); the store accepts a missing or
// mismatched descriptor silently, but the library will not recognize the
// attachment without it. The format is byte-exact.
func Propfile(mtime int64, hash string) string {
	return fmt.Sprintf(`<properties version="1"><mtime>%d</mtime><hash>%s</hash></properties>`, mtime, hash)
}

// FileMD5 returns the lowercase hex MD5 digest of the file's bytes. MD5 here
// is the library's change-detection convention, not an integrity guarantee.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
