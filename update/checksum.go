package update

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm identifies a checksum algorithm used in release checksum files.
type Algorithm string

const (
	MD5    Algorithm = "MD5"
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
)

var (
	// ErrAssetNotFound indicates no release asset matches the current platform.
	ErrAssetNotFound = errors.New("no release asset matches the current platform")
	// ErrChecksumFileNotFound indicates the release carries no usable checksum entry.
	ErrChecksumFileNotFound = errors.New("checksum entry not found in release assets")
)

// VerifyFile computes the file checksum and compares it with the expected value.
func VerifyFile(algo Algorithm, expectedChecksum, filename string) error {
	var h hash.Hash
	switch algo {
	case MD5:
		h = md5.New()
	case SHA1:
		h = sha1.New()
	case SHA256:
		h = sha256.New()
	default:
		return fmt.Errorf("unsupported checksum algorithm: %s", algo)
	}

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = io.Copy(h, f); err != nil {
		return err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expectedChecksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedChecksum, actual)
	}
	return nil
}
