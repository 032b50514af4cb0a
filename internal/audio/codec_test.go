package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	w := sineWaveform(8000, 2, 8000)
	path := filepath.Join(t.TempDir(), "clip.wav")

	require.NoError(t, EncodeWAV(path, w))

	got, err := DecodeFile(path)
	require.NoError(t, err)

	require.Equal(t, w.SampleRate, got.SampleRate)
	require.Equal(t, w.Channels(), got.Channels())
	require.Equal(t, w.Frames(), got.Frames())

	// 16-bit quantization bounds the round-trip error.
	for ch := range w.Samples {
		for i := range w.Samples[ch] {
			assert.InDelta(t, w.Samples[ch][i], got.Samples[ch][i], 1.0/32768*2)
		}
	}
}

func TestDecodeFileUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.flac")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	_, err := DecodeFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")
}

func TestDecodeFileMissing(t *testing.T) {
	_, err := DecodeFile(filepath.Join(t.TempDir(), "absent.wav"))
	require.Error(t, err)
}

func TestDecodeFileInvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFgarbage"), 0o644))

	_, err := DecodeFile(path)
	require.Error(t, err)
}

func TestEncodeWAVClampsOvershoot(t *testing.T) {
	w := New(8000, 1, 100)
	for i := range w.Samples[0] {
		w.Samples[0][i] = 1.5 // beyond full scale
	}
	path := filepath.Join(t.TempDir(), "hot.wav")
	require.NoError(t, EncodeWAV(path, w))

	got, err := DecodeFile(path)
	require.NoError(t, err)
	for _, v := range got.Samples[0] {
		assert.LessOrEqual(t, v, 1.0)
	}
}
