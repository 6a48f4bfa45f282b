package loaders

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/stridelabs/pulse/engine/resources"
)

type AudioLoader struct {
	Fetcher Fetcher
}

// Load fetches and fully decodes an audio clip. The clip only counts as
// loaded once every sample has been decoded to PCM.
func (al *AudioLoader) Load(ctx context.Context, desc resources.Descriptor) (*resources.Resource, error) {
	data, err := al.Fetcher.Fetch(ctx, desc.Locator)
	if err != nil {
		return nil, resources.NewLoadError(resources.ClassTransport, desc.Key, resources.TypeAudio, desc.Locator, err)
	}

	var clip *resources.AudioData
	switch strings.ToLower(filepath.Ext(desc.Locator)) {
	case ".mp3":
		clip, err = decodeMP3(data)
	case ".wav":
		clip, err = decodeWAV(data)
	default:
		err = fmt.Errorf("unsupported audio format %q", filepath.Ext(desc.Locator))
	}
	if err != nil {
		return nil, resources.NewLoadError(resources.ClassDecode, desc.Key, resources.TypeAudio, desc.Locator, err)
	}

	return &resources.Resource{
		Key:     desc.Key,
		Type:    resources.TypeAudio,
		Locator: desc.Locator,
		Size:    uint64(len(data)),
		Data:    clip,
	}, nil
}

func (al *AudioLoader) Unload(resource *resources.Resource) error {
	if data, ok := resource.Data.(*resources.AudioData); ok {
		data.PCM = nil
	}
	return nil
}

func decodeWAV(data []byte) (*resources.AudioData, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if dec.Err() != nil {
		return nil, dec.Err()
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("wav stream contains no samples")
	}

	rate := buf.Format.SampleRate
	channels := buf.Format.NumChannels
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("wav header declares invalid format: rate=%d channels=%d", rate, channels)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	pcm := make([]int16, len(buf.Data))
	switch bitDepth {
	case 8:
		// 8-bit wav is unsigned.
		for i, s := range buf.Data {
			pcm[i] = int16((s - 128) << 8)
		}
	case 16:
		for i, s := range buf.Data {
			pcm[i] = int16(s)
		}
	case 24:
		for i, s := range buf.Data {
			pcm[i] = int16(s >> 8)
		}
	case 32:
		for i, s := range buf.Data {
			pcm[i] = int16(s >> 16)
		}
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	frames := len(pcm) / channels
	return &resources.AudioData{
		SampleRate: rate,
		Channels:   channels,
		PCM:        pcm,
		Duration:   time.Duration(frames) * time.Second / time.Duration(rate),
	}, nil
}

func decodeMP3(data []byte) (*resources.AudioData, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	// go-mp3 always outputs 16-bit little-endian stereo.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("mp3 stream contains no samples")
	}

	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}

	rate := dec.SampleRate()
	frames := len(pcm) / 2
	return &resources.AudioData{
		SampleRate: rate,
		Channels:   2,
		PCM:        pcm,
		Duration:   time.Duration(frames) * time.Second / time.Duration(rate),
	}, nil
}
