package loaders

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridelabs/pulse/engine/resources"
)

// writeTestWAV writes a minimal 16-bit mono PCM RIFF file.
func writeTestWAV(t *testing.T, dir string, sampleRate int, samples []int16) string {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	path := filepath.Join(dir, "clip.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestAudioLoaderLoadWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32000, -32000, 0, 500, -500}
	path := writeTestWAV(t, t.TempDir(), 8000, samples)

	loader := &AudioLoader{Fetcher: NewFetcher(5 * time.Second)}
	res, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "clip", Type: resources.TypeAudio, Locator: path,
	})
	require.NoError(t, err)

	clip, ok := res.Data.(*resources.AudioData)
	require.True(t, ok)
	assert.Equal(t, 8000, clip.SampleRate)
	assert.Equal(t, 1, clip.Channels)
	assert.Equal(t, samples, clip.PCM)
	assert.Equal(t, time.Second*8/8000, clip.Duration)
}

// writeTestWAV24 writes a minimal 24-bit mono PCM RIFF file.
func writeTestWAV24(t *testing.T, dir string, sampleRate int, samples []int32) string {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		data.WriteByte(byte(s))
		data.WriteByte(byte(s >> 8))
		data.WriteByte(byte(s >> 16))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*3))
	binary.Write(&buf, binary.LittleEndian, uint16(3))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(24)) // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	path := filepath.Join(dir, "clip24.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestAudioLoaderRejectsZeroSampleRate(t *testing.T) {
	// A header declaring rate 0 must fail decoding, not crash.
	path := writeTestWAV(t, t.TempDir(), 0, []int16{0, 1, 2, 3})

	loader := &AudioLoader{Fetcher: NewFetcher(5 * time.Second)}
	_, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "clip", Type: resources.TypeAudio, Locator: path,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrDecode))
}

func TestAudioLoaderScales24BitSamples(t *testing.T) {
	samples := []int32{0x123456, -0x123456, 0x7FFFFF}
	path := writeTestWAV24(t, t.TempDir(), 8000, samples)

	loader := &AudioLoader{Fetcher: NewFetcher(5 * time.Second)}
	res, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "clip24", Type: resources.TypeAudio, Locator: path,
	})
	require.NoError(t, err)

	clip := res.Data.(*resources.AudioData)
	require.Len(t, clip.PCM, 3)
	assert.Equal(t, int16(0x1234), clip.PCM[0])
	assert.Equal(t, int16(-0x1235), clip.PCM[1])
	assert.Equal(t, int16(0x7FFF), clip.PCM[2])
}

func TestAudioLoaderDecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not riff"), 0o644))

	loader := &AudioLoader{Fetcher: NewFetcher(5 * time.Second)}
	_, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "broken", Type: resources.TypeAudio, Locator: path,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrDecode))
}

func TestAudioLoaderUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o644))

	loader := &AudioLoader{Fetcher: NewFetcher(5 * time.Second)}
	_, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "clip", Type: resources.TypeAudio, Locator: path,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrDecode))
	assert.Contains(t, err.Error(), "unsupported audio format")
}

func TestAudioLoaderTransportFailure(t *testing.T) {
	loader := &AudioLoader{Fetcher: NewFetcher(5 * time.Second)}
	_, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "missing", Type: resources.TypeAudio, Locator: filepath.Join(t.TempDir(), "nope.wav"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrTransport))
}
