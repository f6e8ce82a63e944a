package tracefile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/yandex/schedprof/schedprof/pkg/atomicfs"
	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

const CurrentVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported trace file version")
	ErrMissingData        = errors.New("trace file has no profile data")
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

func CompressionNames() []string {
	return []string{string(CompressionNone), string(CompressionZstd)}
}

func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case CompressionNone, CompressionZstd:
		return c, nil
	case "":
		return CompressionNone, nil
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

////////////////////////////////////////////////////////////////////////////////

// File is one saved profiling session.
type File struct {
	Version int
	// Assigned on first encode when nil.
	SessionID uuid.UUID
	Data      *model.ProfilerData
}

func NewFile(data *model.ProfilerData) *File {
	return &File{Version: CurrentVersion, Data: data}
}

type envelope struct {
	Version   int             `json:"version"`
	SessionID uuid.UUID       `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func Encode(w io.Writer, f *File, compression Compression) (err error) {
	if f.Data == nil {
		return ErrMissingData
	}
	if f.SessionID == uuid.Nil {
		f.SessionID, err = uuid.NewV4()
		if err != nil {
			return fmt.Errorf("failed to generate session id: %w", err)
		}
	}
	if f.Version == 0 {
		f.Version = CurrentVersion
	}

	data, err := json.Marshal(toWire(f.Data))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	env := envelope{Version: f.Version, SessionID: f.SessionID, Data: data}

	switch compression {
	case CompressionNone, "":
		return json.NewEncoder(w).Encode(&env)
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := json.NewEncoder(zw).Encode(&env); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	default:
		return fmt.Errorf("unknown compression %q", compression)
	}
}

// Decode reads a plain or zstd compressed file and validates its profile.
func Decode(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	var env envelope
	if err := json.NewDecoder(src).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode trace file: %w", err)
	}
	if env.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, ErrMissingData
	}

	var w wireData
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	data, err := fromWire(&w)
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &File{Version: env.Version, SessionID: env.SessionID, Data: data}, nil
}

////////////////////////////////////////////////////////////////////////////////

// Save replaces path atomically.
func Save(path string, f *File, compression Compression) error {
	return atomicfs.WriteWith(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := Encode(bw, f, compression); err != nil {
			return err
		}
		return bw.Flush()
	}, atomicfs.WithSync())
}

func Load(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	f, err := Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
