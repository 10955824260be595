package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// Fingerprint identifies an input file in logs and plan output.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
	SHA256  string // hex
}

// FingerprintFile stats and hashes the file at path.
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat file: %w", err)
	}
	if st.IsDir() {
		return Fingerprint{}, fmt.Errorf("%s is a directory", path)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, fmt.Errorf("hash file: %w", err)
	}
	return Fingerprint{
		Path:    path,
		Size:    st.Size(),
		ModTime: st.ModTime(),
		SHA256:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}
