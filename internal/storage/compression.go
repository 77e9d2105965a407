package storage

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"tenant-backup/internal/errors"
)

// Compress encodes data with the selected algorithm. A zero level selects
// the algorithm's default.
func Compress(data []byte, algorithm CompressionType, level int) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		return gzipCompress(data, level)
	case CompressionLZ4:
		return lz4Compress(data, level)
	case CompressionZstd:
		return zstdCompress(data, level)
	default:
		return nil, errors.NewStorageError("unsupported compression algorithm: "+string(algorithm), nil)
	}
}

// Decompress decodes data compressed with the selected algorithm
func Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		return gzipDecompress(data)
	case CompressionLZ4:
		return lz4Decompress(data)
	case CompressionZstd:
		return zstdDecompress(data)
	default:
		return nil, errors.NewStorageError("unsupported compression algorithm: "+string(algorithm), nil)
	}
}

func gzipCompress(data []byte, level int) ([]byte, error) {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, errors.NewStorageError("failed to create gzip writer", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewStorageError("failed to gzip archive", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewStorageError("failed to finalize gzip archive", err)
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewStorageError("failed to open gzip archive", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewStorageError("failed to decompress gzip archive", err)
	}
	return decompressed, nil
}

func lz4Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if level > 6 {
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, errors.NewStorageError("failed to configure lz4 compression", err)
		}
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewStorageError("failed to lz4-compress archive", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewStorageError("failed to finalize lz4 archive", err)
	}
	return buf.Bytes(), nil
}

func lz4Decompress(data []byte) ([]byte, error) {
	decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.NewStorageError("failed to decompress lz4 archive", err)
	}
	return decompressed, nil
}

func zstdCompress(data []byte, level int) ([]byte, error) {
	encoderLevel := zstd.SpeedDefault
	switch {
	case level == 0:
	case level <= 1:
		encoderLevel = zstd.SpeedFastest
	case level <= 3:
		encoderLevel = zstd.SpeedDefault
	case level <= 6:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, errors.NewStorageError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to decompress zstd archive", err)
	}
	return decompressed, nil
}
