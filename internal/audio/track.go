package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

var ErrEmptyTrack = errors.New("audio track has no samples")

// Track is a fully decoded recording held in memory. It is read-only after
// Decode and safe for concurrent readers.
type Track struct {
	buf    *beep.Buffer
	format beep.Format
}

// Open decodes a WAV file from disk.
func Open(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a complete WAV stream into memory.
func Decode(r io.Reader) (*Track, error) {
	s, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer s.Close()

	buf := beep.NewBuffer(format)
	buf.Append(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyTrack
	}

	return &Track{buf: buf, format: format}, nil
}

func (t *Track) SampleRate() int {
	return int(t.format.SampleRate)
}

func (t *Track) Channels() int {
	return t.format.NumChannels
}

// Duration is the track length in seconds.
func (t *Track) Duration() float64 {
	return t.format.SampleRate.D(t.buf.Len()).Seconds()
}

// span converts a time range in seconds to sample indexes, rounded to the
// millisecond and clamped to the buffer.
func (t *Track) span(start, end float64) (int, int) {
	toIndex := func(sec float64) int {
		d := time.Duration(math.Round(sec*1000)) * time.Millisecond
		return min(max(0, t.format.SampleRate.N(d)), t.buf.Len())
	}

	from, to := toIndex(start), toIndex(end)
	if to < from {
		to = from
	}
	return from, to
}

// fullScale is the magnitude of the largest sample for the track's bit depth,
// so levels read in the same integer units as the PCM data.
func (t *Track) fullScale() float64 {
	return math.Exp2(float64(8*t.format.Precision - 1))
}

// RMS returns the root mean square level of [start, end) in integer sample
// units, channels averaged. An empty range has level 0.
func (t *Track) RMS(start, end float64) (float64, error) {
	from, to := t.span(start, end)
	if from == to {
		return 0, nil
	}

	s := t.buf.Streamer(from, to)
	samples := make([][2]float64, 512)
	scale := t.fullScale()

	var sum float64
	n := 0
	for {
		read, ok := s.Stream(samples)
		for _, smp := range samples[:read] {
			v := smp[0]
			if t.format.NumChannels > 1 {
				v = (smp[0] + smp[1]) / 2
			}
			v *= scale
			sum += v * v
			n++
		}
		if !ok || read == 0 {
			break
		}
	}
	if err := s.Err(); err != nil {
		return 0, fmt.Errorf("failed to stream samples: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	return math.Sqrt(sum / float64(n)), nil
}

// WriteClip encodes [start, end) as a WAV file at path.
func (t *Track) WriteClip(path string, start, end float64) error {
	from, to := t.span(start, end)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create clip: %w", err)
	}

	if err := wav.Encode(f, t.buf.Streamer(from, to), t.format); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode clip: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close clip: %w", err)
	}
	return nil
}
