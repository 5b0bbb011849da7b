package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"ispeak-server-go/internal/platform/errors"
)

// Clip is a decoded recording: mono float64 samples in [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeFile reads and decodes an audio file from disk.
func DecodeFile(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindAudio, "decode", "read audio file", err)
	}
	return Decode(data)
}

// Decode sniffs the container format and decodes to a mono clip. WAV is
// parsed directly; MP3 goes through the mp3 decoder. Multi-channel input is
// downmixed by averaging the channels of each sample frame.
func Decode(data []byte) (*Clip, error) {
	const op = "decode"
	if len(data) == 0 {
		return nil, errors.New(errors.KindAudio, op, "empty audio payload")
	}
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return decodeWAV(data)
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return decodeMP3(data)
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return decodeMP3(data)
	default:
		return nil, errors.New(errors.KindAudio, op, "unrecognized audio format")
	}
}

func decodeMP3(data []byte) (*Clip, error) {
	const op = "decode.mp3"
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.KindAudio, op, "open mp3 stream", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrap(errors.KindAudio, op, "read mp3 frames", err)
	}

	// The decoder always emits 16-bit little-endian stereo.
	frames := len(pcm) / 4
	samples := make([]float64, 0, frames)
	for i := 0; i+3 < len(pcm); i += 4 {
		l := int16(binary.LittleEndian.Uint16(pcm[i:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i+2:]))
		samples = append(samples, (float64(l)+float64(r))/2/32768.0)
	}
	if len(samples) == 0 {
		return nil, errors.New(errors.KindAudio, op, "mp3 stream decoded to no samples")
	}

	return &Clip{Samples: samples, SampleRate: dec.SampleRate()}, nil
}

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

func decodeWAV(data []byte) (*Clip, error) {
	const op = "decode.wav"

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		pcm        []byte
		haveFmt    bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New(errors.KindAudio, op, "fmt chunk too short")
			}
			format = binary.LittleEndian.Uint16(data[body:])
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}
		// chunks are word-aligned
		pos = body + size + size%2
	}

	if !haveFmt || pcm == nil {
		return nil, errors.New(errors.KindAudio, op, "missing fmt or data chunk")
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, errors.New(errors.KindAudio, op, "invalid fmt parameters")
	}

	var mono []float64
	switch {
	case format == wavFormatPCM && bitDepth == 16:
		mono = downmixInt(pcm, channels, 2, func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
		})
	case format == wavFormatPCM && bitDepth == 8:
		mono = downmixInt(pcm, channels, 1, func(b []byte) float64 {
			return (float64(b[0]) - 128) / 128.0
		})
	case format == wavFormatPCM && bitDepth == 24:
		mono = downmixInt(pcm, channels, 3, func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v -= 1 << 24
			}
			return float64(v) / 8388608.0
		})
	case format == wavFormatPCM && bitDepth == 32:
		mono = downmixInt(pcm, channels, 4, func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
		})
	case format == wavFormatFloat && bitDepth == 32:
		mono = downmixInt(pcm, channels, 4, func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		})
	default:
		return nil, errors.New(errors.KindAudio, op, "unsupported wav encoding")
	}

	if len(mono) == 0 {
		return nil, errors.New(errors.KindAudio, op, "data chunk decoded to no samples")
	}

	return &Clip{Samples: mono, SampleRate: sampleRate}, nil
}

func downmixInt(pcm []byte, channels, width int, read func([]byte) float64) []float64 {
	stride := channels * width
	if stride == 0 {
		return nil
	}
	frames := len(pcm) / stride
	out := make([]float64, 0, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		base := f * stride
		for ch := 0; ch < channels; ch++ {
			sum += read(pcm[base+ch*width:])
		}
		out = append(out, sum/float64(channels))
	}
	return out
}
