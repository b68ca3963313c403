/*
NAME
  wav.go

DESCRIPTION
  wav.go contains functions for writing wav audio.

AUTHOR
  David Sutton <davidsutton@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wav provides functions for writing wav audio. It is used to wrap
// decoded DFPWM output in a playable container.
package wav

import (
	"encoding/binary"
	"fmt"
)

const PCMFormat = 1 // PCMFormat defines the value for pcm audio as defined by the wav std.

const headerSize = 44 // Size of the RIFF/WAVE/fmt/data headers in bytes.

var (
	errInvalidFormat   = fmt.Errorf("invalid or no format defined")
	errInvalidRate     = fmt.Errorf("invalid or no sample rate defined")
	errInvalidChannels = fmt.Errorf("invalid or no number of channels defined")
	errInvalidBitDepth = fmt.Errorf("invalid or no bit depth defined")
)

// Metadata defines the format of the audio file for writing.
type Metadata struct {
	AudioFormat int
	Channels    int
	SampleRate  int
	BitDepth    int
}

// WAV is a wav file in construction: metadata plus whatever audio has been
// written so far.
type WAV struct {
	Metadata Metadata
	Audio    []byte
}

// validate checks that the metadata describes an encodable file.
// NB: wav stores 8-bit PCM as unsigned samples; callers writing 8-bit audio
// are expected to have offset signed samples by 128 already.
func (md Metadata) validate() error {
	switch {
	case md.AudioFormat != PCMFormat: // TODO: allow for more encoding formats.
		return errInvalidFormat
	case md.Channels <= 0:
		return errInvalidChannels
	case md.SampleRate <= 0:
		return errInvalidRate
	case md.BitDepth != 8 && md.BitDepth != 16 && md.BitDepth != 32:
		return errInvalidBitDepth
	}
	return nil
}

// header encodes the 44 byte RIFF/WAVE header for n bytes of audio data.
func (md Metadata) header(n int) []byte {
	h := make([]byte, headerSize)

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(n+headerSize))
	copy(h[8:12], "WAVE")

	// fmt chunk.
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], uint16(md.AudioFormat))
	binary.LittleEndian.PutUint16(h[22:24], uint16(md.Channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(md.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32((md.SampleRate*md.BitDepth*md.Channels)/8))
	binary.LittleEndian.PutUint16(h[32:34], uint16((md.BitDepth*md.Channels)/8))
	binary.LittleEndian.PutUint16(h[34:36], uint16(md.BitDepth))

	// data chunk.
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(n))

	return h
}

// Write writes the given audio byte slice to the WAV, encoding the appropriate headings.
// The number of bytes of the resulting file is returned, along with the first
// error encountered, if any.
func (w *WAV) Write(p []byte) (n int, err error) {
	if err := w.Metadata.validate(); err != nil {
		return 0, err
	}

	w.Audio = append(w.Metadata.header(len(p)), p...)
	return len(p) + headerSize, nil
}
