package zotero

import (
	"crypto/md5"
	"encoding/hex"
)

// bytesMD5 returns the lowercase hex MD5 of data. Zotero uses MD5 for change
// detection on attachments, not for integrity.
func bytesMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
