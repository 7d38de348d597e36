// Package stream serves byte ranges of files the download engine is still
// writing. On-disk size is the hard limit for what can be sent; the
// declared size from torrent metadata is what clients are told the file
// will eventually be, so players keep re-requesting as data arrives.
package stream

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"syncwatch/internal/utils"
)

const chunkSize = 8 * 1024

type Server struct {
	fs     afero.Fs
	logger *utils.Logger
}

func NewServer(fs afero.Fs, logger *utils.Logger) *Server {
	return &Server{fs: fs, logger: logger}
}

// Exists reports whether the engine has created the file yet.
func (s *Server) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// ServeFile streams the file at path, honoring an optional Range header.
// expectedTotal is the declared final size from metadata; pass 0 to treat
// the current on-disk size as the total (non-progressive files).
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, path string, expectedTotal int64, contentType string) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		http.Error(w, "File not yet downloaded", http.StatusNotFound)
		return
	}

	onDisk := fi.Size()
	if expectedTotal <= 0 {
		expectedTotal = onDisk
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		// No range: send what exists on disk right now. The client is
		// expected to come back with ranges as the file grows.
		w.Header().Set("Content-Length", strconv.FormatInt(onDisk, 10))
		w.WriteHeader(http.StatusOK)
		s.copyRange(w, path, 0, onDisk)
		return
	}

	start, end, err := parseRange(rangeHeader, expectedTotal)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", expectedTotal))
		http.Error(w, "Invalid range", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if start >= onDisk {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", expectedTotal))
		http.Error(w, "Requested range not yet downloaded", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	// Clamp the tail to what is actually on disk.
	availableEnd := end
	if availableEnd > onDisk-1 {
		availableEnd = onDisk - 1
	}
	contentLength := availableEnd - start + 1

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, availableEnd, expectedTotal))
	w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
	w.WriteHeader(http.StatusPartialContent)

	s.copyRange(w, path, start, contentLength)
}

// parseRange parses a "bytes=start-end" header. Only single ranges are
// supported; start defaults to 0 and end to total-1.
func parseRange(header string, total int64) (start, end int64, err error) {
	rangeSpec := strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(rangeSpec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed range header %q", header)
	}

	start = 0
	end = total - 1

	if parts[0] != "" {
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q", parts[0])
		}
	}
	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range end %q", parts[1])
		}
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("range %d-%d out of order", start, end)
	}
	return start, end, nil
}

// copyRange streams length bytes starting at offset, one chunk at a time,
// flushing each chunk so playback starts before the range completes. The
// file handle is released on every exit path, including the client
// disconnecting mid-copy.
func (s *Server) copyRange(w http.ResponseWriter, path string, offset, length int64) {
	f, err := s.fs.Open(path)
	if err != nil {
		s.logger.Error("Failed to open file for streaming:", err)
		return
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		s.logger.Error("Seek failed while streaming:", err)
		return
	}

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunkSize)
	remaining := length

	for remaining > 0 {
		toRead := int64(len(buf))
		if remaining < toRead {
			toRead = remaining
		}

		n, readErr := f.Read(buf[:toRead])
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				s.logger.Debug("Client disconnected mid-stream:", writeErr)
				return
			}
			remaining -= int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				s.logger.Error("Read error while streaming:", readErr)
			}
			return
		}
	}
}
