package codec

import (
	"encoding/json"
	"fmt"
)

// N5 compression types.
const (
	TypeRaw   = "raw"
	TypeGzip  = "gzip"
	TypeBzip2 = "bzip2"
	TypeLZ4   = "lz4"
	TypeXZ    = "xz"
	TypeZstd  = "zstd"
)

// Compression is the "compression" object of N5 dataset attributes: a codec
// type plus the parameters that type understands. Parameters that do not
// apply to Type are ignored and are not serialized.
type Compression struct {
	Type string

	// Level is the gzip (-1..9) or zstd (1..22) compression level.
	Level int
	// UseZlib selects zlib framing instead of gzip framing for "gzip".
	UseZlib bool
	// BlockSize is the bzip2 block size in 100k units (1..9) or the lz4 block size in bytes.
	BlockSize int
	// Preset is the xz preset (0..9).
	Preset int
}

// RawCompression returns an uncompressed configuration.
func RawCompression() Compression { return Compression{Type: TypeRaw} }

// GzipCompression returns a gzip configuration at the given level.
func GzipCompression(level int) Compression {
	return Compression{Type: TypeGzip, Level: level}
}

// DefaultCompression returns typ configured with the N5 default parameters.
func DefaultCompression(typ string) Compression {
	c := Compression{Type: typ}
	switch typ {
	case TypeGzip:
		c.Level = -1
	case TypeBzip2:
		c.BlockSize = 9
	case TypeLZ4:
		c.BlockSize = 65536
	case TypeXZ:
		c.Preset = 6
	case TypeZstd:
		c.Level = 3
	}
	return c
}

func (c Compression) String() string {
	switch c.Type {
	case TypeGzip:
		if c.UseZlib {
			return fmt.Sprintf("gzip(level=%d,zlib)", c.Level)
		}
		return fmt.Sprintf("gzip(level=%d)", c.Level)
	case TypeZstd:
		return fmt.Sprintf("zstd(level=%d)", c.Level)
	case TypeBzip2, TypeLZ4:
		return fmt.Sprintf("%s(blockSize=%d)", c.Type, c.BlockSize)
	case TypeXZ:
		return fmt.Sprintf("xz(preset=%d)", c.Preset)
	}
	return c.Type
}

type compressionJSON struct {
	Type      string `json:"type"`
	Level     *int   `json:"level,omitempty"`
	UseZlib   *bool  `json:"useZlib,omitempty"`
	BlockSize *int   `json:"blockSize,omitempty"`
	Preset    *int   `json:"preset,omitempty"`
}

// MarshalJSON writes the type and the parameters relevant to it.
func (c Compression) MarshalJSON() ([]byte, error) {
	out := compressionJSON{Type: c.Type}
	switch c.Type {
	case TypeRaw:
	case TypeGzip:
		out.Level, out.UseZlib = &c.Level, &c.UseZlib
	case TypeZstd:
		out.Level = &c.Level
	case TypeBzip2, TypeLZ4:
		out.BlockSize = &c.BlockSize
	case TypeXZ:
		out.Preset = &c.Preset
	default:
		// Unknown codecs keep whatever was set so their parameters survive a rewrite.
		if c.Level != 0 {
			out.Level = &c.Level
		}
		if c.UseZlib {
			out.UseZlib = &c.UseZlib
		}
		if c.BlockSize != 0 {
			out.BlockSize = &c.BlockSize
		}
		if c.Preset != 0 {
			out.Preset = &c.Preset
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a compression object, filling absent parameters with
// the N5 defaults for its type.
func (c *Compression) UnmarshalJSON(data []byte) error {
	var in compressionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Type == "" {
		return fmt.Errorf("compression object without type")
	}
	out := DefaultCompression(in.Type)
	if in.Level != nil {
		out.Level = *in.Level
	}
	if in.UseZlib != nil {
		out.UseZlib = *in.UseZlib
	}
	if in.BlockSize != nil {
		out.BlockSize = *in.BlockSize
	}
	if in.Preset != nil {
		out.Preset = *in.Preset
	}
	*c = out
	return nil
}
