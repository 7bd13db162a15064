package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrNotWAV is returned for payloads that are not RIFF/WAVE containers.
var ErrNotWAV = errors.New("audio payload is not a RIFF/WAVE file")

// Format is the "fmt " chunk of a WAV file
type Format struct {
	AudioFormat   uint16 // 1 = PCM, 3 = IEEE float, 7 = μ-law
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Clip is a validated WAV file ready for playback
type Clip struct {
	Format
	Raw      []byte // the complete file, header included
	DataSize int    // bytes of sample data
}

// Duration is the playing time implied by the header
func (c *Clip) Duration() time.Duration {
	if c.ByteRate == 0 {
		return 0
	}
	return time.Duration(float64(c.DataSize) / float64(c.ByteRate) * float64(time.Second))
}

// DecodeBase64WAV decodes the speech endpoint's audio field and validates it.
func DecodeBase64WAV(payload string) (*Clip, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return ParseWAV(raw)
}

// ParseWAV walks the RIFF chunks and returns the fmt and data information.
func ParseWAV(raw []byte) (*Clip, error) {
	if len(raw) < 12 || !bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		return nil, ErrNotWAV
	}

	clip := &Clip{Raw: raw}
	var haveFormat, haveData bool

	offset := 12
	for offset+8 <= len(raw) {
		id := string(raw[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + 8

		// Streaming writers leave the size at 0xFFFFFFFF; clamp to what is present
		if size < 0 || body+size > len(raw) {
			size = len(raw) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrNotWAV, size)
			}
			f := raw[body : body+16]
			clip.Format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(f[0:2]),
				Channels:      binary.LittleEndian.Uint16(f[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(f[4:8]),
				ByteRate:      binary.LittleEndian.Uint32(f[8:12]),
				BlockAlign:    binary.LittleEndian.Uint16(f[12:14]),
				BitsPerSample: binary.LittleEndian.Uint16(f[14:16]),
			}
			haveFormat = true

		case "data":
			clip.DataSize = size
			haveData = true
		}

		// chunks are word aligned
		offset = body + size + size%2
	}

	if !haveFormat {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	if !haveData {
		return nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
	}
	if clip.Channels == 0 || clip.SampleRate == 0 {
		return nil, fmt.Errorf("%w: invalid format %d channels @ %d Hz", ErrNotWAV, clip.Channels, clip.SampleRate)
	}
	return clip, nil
}

// EncodePCM16 wraps 16-bit little-endian samples in a canonical 44-byte WAV header.
func EncodePCM16(samples []int16, sampleRate, channels int) []byte {
	dataSize := len(samples) * 2
	blockAlign := channels * 2

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	_ = binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}
