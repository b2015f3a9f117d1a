/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WhisperSampleRate is the sample rate whisper.cpp expects
const WhisperSampleRate = 16000

// ErrInvalidWAV is returned for uploads that are not decodable RIFF/WAVE audio
var ErrInvalidWAV = errors.New("invalid WAV data")

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

type wavFormat struct {
	audioFormat   uint16
	channels      int
	sampleRate    int
	bitsPerSample int
}

// DecodeWAV decodes 16-bit PCM or 32-bit float WAV data into mono float32
// samples at WhisperSampleRate.
func DecodeWAV(data []byte) ([]float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var format *wavFormat
	var pcm []byte

	for offset := 12; offset+8 <= len(data); {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + chunkSize
		if chunkSize < 0 || end > len(data) {
			// Streaming recorders leave the data size unset; take what is there.
			if chunkID != "data" {
				return nil, fmt.Errorf("%w: truncated %q chunk", ErrInvalidWAV, chunkID)
			}
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format = &wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				channels:      int(binary.LittleEndian.Uint16(data[body+2 : body+4])),
				sampleRate:    int(binary.LittleEndian.Uint32(data[body+4 : body+8])),
				bitsPerSample: int(binary.LittleEndian.Uint16(data[body+14 : body+16])),
			}
		case "data":
			pcm = data[body:end]
		}

		// Chunks are padded to an even size
		offset = end + (chunkSize & 1)
	}

	if format == nil {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	}
	if pcm == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
	}
	if format.channels <= 0 || format.sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidWAV, format.channels, format.sampleRate)
	}

	samples, err := decodeSamples(format, pcm)
	if err != nil {
		return nil, err
	}

	return resample(samples, format.sampleRate, WhisperSampleRate), nil
}

// decodeSamples converts interleaved frames to mono by averaging channels
func decodeSamples(format *wavFormat, pcm []byte) ([]float32, error) {
	var sampleSize int
	var read func([]byte) float32

	switch {
	case format.audioFormat == wavFormatPCM && format.bitsPerSample == 16:
		sampleSize = 2
		read = func(b []byte) float32 {
			return float32(int16(binary.LittleEndian.Uint16(b))) / 32768.0
		}
	case format.audioFormat == wavFormatFloat && format.bitsPerSample == 32:
		sampleSize = 4
		read = func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported encoding (format %d, %d bits)",
			ErrInvalidWAV, format.audioFormat, format.bitsPerSample)
	}

	frameSize := sampleSize * format.channels
	frames := len(pcm) / frameSize
	samples := make([]float32, frames)

	for i := 0; i < frames; i++ {
		var sum float32
		frame := pcm[i*frameSize : (i+1)*frameSize]
		for ch := 0; ch < format.channels; ch++ {
			sum += read(frame[ch*sampleSize : (ch+1)*sampleSize])
		}
		samples[i] = sum / float32(format.channels)
	}

	return samples, nil
}

// resample converts between sample rates with linear interpolation
func resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}

	outLen := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, outLen)
	ratio := float64(from) / float64(to)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))
		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}

	return out
}
