package playback

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/voxlet/voxlet/pcm"
)

// ErrDecode is wrapped by every malformed-payload error. Per the queue's
// contract such failures are non-fatal.
var ErrDecode = errors.New("audio decode failed")

// WAVDecoder decodes PCM16 RIFF/WAVE payloads, the format the agent uses
// for synthesized speech clips.
type WAVDecoder struct{}

// Decode parses a WAV payload into a clip.
func (WAVDecoder) Decode(data []byte) (*Clip, error) {
	return decodeWAV(data)
}

// decodeWAV walks the RIFF chunk list, accepting only uncompressed 16-bit
// PCM. Chunks other than "fmt " and "data" are skipped.
func decodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE payload", ErrDecode)
	}

	var (
		sampleRate int
		channels   int
		bits       int
		haveFmt    bool
		samples    []int16
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			return nil, fmt.Errorf("%w: truncated %q chunk", ErrDecode, chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrDecode)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("%w: unsupported audio format %d", ErrDecode, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrDecode)
			}
			if bits != 16 {
				return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, bits)
			}
			samples = pcm.Decode16(data[body : body+chunkSize])
			return &Clip{
				Samples:    samples,
				SampleRate: sampleRate,
				Channels:   channels,
			}, nil
		}

		// Chunks are word-aligned.
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	return nil, fmt.Errorf("%w: no data chunk", ErrDecode)
}
