package device

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
)

// fileDevice reads interleaved little-endian float32 IQ pairs from disk, for
// offline testing and for reprocessing previously captured IF recordings.
// SetCenterFreq/SetSampleRate are no-ops since a capture has no tunable RF
// front end.
type fileDevice struct {
	f  *os.File
	r  *bufio.Reader
}

func openFile(path string) (Capability, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileDevice{f: f, r: bufio.NewReaderSize(f, 1<<20)}, nil
}

func (d *fileDevice) SetCenterFreq(hz uint32) error { return nil }

func (d *fileDevice) SetSampleRate(hz uint32) error { return nil }

func (d *fileDevice) ReadSamples(n int) ([]complex128, error) {
	out := make([]complex128, 0, n)
	var reBits, imBits uint32
	for len(out) < n {
		if err := binary.Read(d.r, binary.LittleEndian, &reBits); err != nil {
			if errors.Is(err, io.EOF) && len(out) > 0 {
				return out, nil
			}
			return out, err
		}
		if err := binary.Read(d.r, binary.LittleEndian, &imBits); err != nil {
			return out, err
		}
		re := float64(math.Float32frombits(reBits))
		im := float64(math.Float32frombits(imBits))
		out = append(out, complex(re, im))
	}
	return out, nil
}

func (d *fileDevice) Close() error {
	return d.f.Close()
}
