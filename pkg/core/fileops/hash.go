package fileops

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
)

const (
	// osdbHashChunkSize is the size of the chunk read from the start and end of the file.
	osdbHashChunkSize = 65536 // 64 * 1024

	// MinFileSize is the smallest file that can be fingerprinted.
	MinFileSize = osdbHashChunkSize * 2
)

// Fingerprint is the OpenSubtitles movie hash of a file.
type Fingerprint uint64

// String renders the fingerprint as 16 lowercase hex digits.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// checksumBuffer calculates the sum of 64-bit little-endian integers in the buffer.
// Overflow wraps, which is part of the algorithm.
func checksumBuffer(buf []byte) (sum uint64) {
	for i := 0; i+8 <= len(buf); i += 8 {
		sum += binary.LittleEndian.Uint64(buf[i : i+8])
	}
	return
}

// ComputeFingerprint calculates the OpenSubtitles movie hash of a file.
// Files smaller than MinFileSize yield ErrTooSmall; I/O failures wrap ErrFileAccess.
func ComputeFingerprint(filePath string) (Fingerprint, error) {
	fp, _, err := fingerprint(filePath)
	return fp, err
}

// CalculateOSDbHash returns the movie hash as a hex string together with the file size.
func CalculateOSDbHash(filePath string) (hash string, byteSize int64, err error) {
	fp, byteSize, err := fingerprint(filePath)
	if err != nil {
		return "", byteSize, err
	}
	return fp.String(), byteSize, nil
}

func fingerprint(filePath string) (Fingerprint, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: open '%s': %w", coreErrors.ErrFileAccess, filePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: stat '%s': %w", coreErrors.ErrFileAccess, filePath, err)
	}

	byteSize := stat.Size()
	if byteSize < MinFileSize {
		return 0, byteSize, fmt.Errorf("%w: '%s' (size: %d)", coreErrors.ErrTooSmall, filePath, byteSize)
	}

	buf := make([]byte, osdbHashChunkSize)
	sum := uint64(byteSize)

	if _, err := io.ReadFull(file, buf); err != nil {
		return 0, byteSize, fmt.Errorf("%w: read start chunk from '%s': %w", coreErrors.ErrFileAccess, filePath, err)
	}
	sum += checksumBuffer(buf)

	tail := max(0, byteSize-osdbHashChunkSize)
	if _, err := io.ReadFull(io.NewSectionReader(file, tail, osdbHashChunkSize), buf); err != nil {
		return 0, byteSize, fmt.Errorf("%w: read end chunk from '%s': %w", coreErrors.ErrFileAccess, filePath, err)
	}
	sum += checksumBuffer(buf)

	return Fingerprint(sum), byteSize, nil
}
