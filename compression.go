package courier

import (
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/courier/internal/payload"
)

// GzipCompression returns gzip compression at the default level.
func GzipCompression() Compression {
	return payload.Gzip(gzip.DefaultCompression)
}

// ZstdCompression returns zstd compression at the default level.
func ZstdCompression() Compression {
	return payload.Zstd(zstd.SpeedDefault)
}

// NewGzip returns gzip compression at level (see klauspost/compress/gzip).
func NewGzip(level int) Compression {
	return payload.Gzip(level)
}

// NewZstd returns zstd compression at level.
func NewZstd(level zstd.EncoderLevel) Compression {
	return payload.Zstd(level)
}
