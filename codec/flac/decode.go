/*
NAME
	decode.go

DESCRIPTION
  decode.go provides functionality for the decoding of FLAC compressed audio

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package flac provides functionality for the decoding of FLAC compressed
// audio into PCM ready for conditioning and DFPWM encoding.
package flac

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/mewkiz/flac"

	"github.com/ausocean/dfpwm/codec/pcm"
)

// Decode takes buf, a slice of FLAC, and decodes it to a pcm.Buffer of
// S16_LE samples at the stream's native rate and channel count. If complete
// decoding fails, an error is returned.
func Decode(buf []byte) (pcm.Buffer, error) {
	// Lex the FLAC into a stream to hold audio and its properties.
	r := bytes.NewReader(buf)
	stream, err := flac.Parse(r)
	if err != nil {
		return pcm.Buffer{}, errors.New("could not parse FLAC")
	}

	out := pcm.Buffer{
		Format: pcm.BufferFormat{
			SFormat:  pcm.S16_LE,
			Rate:     uint(stream.Info.SampleRate),
			Channels: uint(stream.Info.NChannels),
		},
	}

	// Samples are shifted to 16-bit amplitude regardless of source depth.
	shift := int(stream.Info.BitsPerSample) - 16

	// Decode FLAC frame by frame, interleaving channel subframes.
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return pcm.Buffer{}, err
		}

		for i := 0; i < frame.Subframes[0].NSamples; i++ {
			for _, subframe := range frame.Subframes {
				s := int(subframe.Samples[i])
				if shift > 0 {
					s >>= shift
				} else if shift < 0 {
					s <<= -shift
				}
				var b [2]byte
				binary.LittleEndian.PutUint16(b[:], uint16(int16(s)))
				out.Data = append(out.Data, b[0], b[1])
			}
		}
	}
}
