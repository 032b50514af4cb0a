package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeFile loads an audio file into a waveform. WAV and MP3 are supported;
// anything else is rejected before decoding starts.
func DecodeFile(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}

func decodeWAV(f *os.File) (*Waveform, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	return fromIntBuffer(buf, int(dec.BitDepth))
}

func fromIntBuffer(buf *gaudio.IntBuffer, bitDepth int) (*Waveform, error) {
	channels := buf.Format.NumChannels
	if channels == 0 {
		return nil, fmt.Errorf("WAV has no channels")
	}
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, ErrEmptyWaveform
	}
	if bitDepth == 0 {
		bitDepth = 16
	}

	scale := float64(int64(1) << (bitDepth - 1))
	w := New(buf.Format.SampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			w.Samples[ch][i] = float64(buf.Data[i*channels+ch]) / scale
		}
	}
	return w, nil
}

func decodeMP3(f *os.File) (*Waveform, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to read MP3 stream: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	frames := len(raw) / 4
	if frames == 0 {
		return nil, ErrEmptyWaveform
	}

	w := New(dec.SampleRate(), 2, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		w.Samples[0][i] = float64(l) / 32768.0
		w.Samples[1][i] = float64(r) / 32768.0
	}
	return w, nil
}

// EncodeWAV writes the waveform to path as 16-bit PCM.
func EncodeWAV(path string, w *Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	channels := w.Channels()
	frames := w.Frames()
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  w.SampleRate,
		},
		SourceBitDepth: 16,
		Data:           make([]int, frames*channels),
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := w.Samples[ch][i]
			// Clamp before quantizing; crossfaded sums can overshoot slightly.
			v = math.Max(-1, math.Min(1, v))
			buf.Data[i*channels+ch] = int(math.Round(v * 32767))
		}
	}

	enc := wav.NewEncoder(f, w.SampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return nil
}
