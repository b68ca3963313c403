/*
NAME
  pcm.go

DESCRIPTION
  pcm.go contains functions for processing pcm.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pcm provides functions for processing and converting pcm audio,
// in particular conditioning arbitrary capture formats down to the mono
// signed 8-bit form consumed by the DFPWM encoder.
package pcm

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// SampleFormat is the format that a PCM Buffer's samples can be in.
type SampleFormat int

// Used to represent an unknown format.
const (
	Unknown SampleFormat = -1
)

// Sample formats that we use.
const (
	S16_LE SampleFormat = iota
	S32_LE
	S8 // Signed 8-bit, one byte per sample; the DFPWM input format.
	// There are many more:
	// https://linux.die.net/man/1/arecord
	// https://trac.ffmpeg.org/wiki/audio%20types
)

// BufferFormat contains the format for a PCM Buffer.
type BufferFormat struct {
	SFormat  SampleFormat
	Rate     uint
	Channels uint
}

// Buffer contains a buffer of PCM data and the format that it is in.
type Buffer struct {
	Format BufferFormat
	Data   []byte
}

// sampleLen returns the number of bytes a single frame (all channels) of
// the given buffer format occupies.
func sampleLen(f BufferFormat) (int, error) {
	switch f.SFormat {
	case S32_LE:
		return int(4 * f.Channels), nil
	case S16_LE:
		return int(2 * f.Channels), nil
	case S8:
		return int(1 * f.Channels), nil
	default:
		return 0, errors.Errorf("unhandled sample format: %v", f.SFormat)
	}
}

// Resample takes Buffer c and resamples the pcm audio data to 'rate' Hz and returns a Buffer with the resampled data.
// Notes:
//   - Currently only downsampling is implemented and c's rate must be divisible by 'rate' or an error will occur.
//   - If the number of bytes in c.Data is not divisible by the decimation factor (ratioFrom), the remaining bytes will
//     not be included in the result. Eg. input of length 480002 downsampling 6:1 will result in output length 80000.
func Resample(c Buffer, rate uint) (Buffer, error) {
	if c.Format.Rate == rate {
		return c, nil
	}
	if c.Format.Rate == 0 {
		return Buffer{}, errors.Errorf("unable to convert from: %v Hz", c.Format.Rate)
	}
	if rate == 0 {
		return Buffer{}, errors.Errorf("unable to convert to: %v Hz", rate)
	}

	sLen, err := sampleLen(c.Format)
	if err != nil {
		return Buffer{}, err
	}
	inPcmLen := len(c.Data)

	// Calculate sample rate ratio ratioFrom:ratioTo.
	rateGcd := gcd(rate, c.Format.Rate)
	ratioFrom := int(c.Format.Rate / rateGcd)
	ratioTo := int(rate / rateGcd)

	// ratioTo = 1 is the only number that will result in an even sampling.
	if ratioTo != 1 {
		return Buffer{}, errors.Errorf("unhandled from:to rate ratio %v:%v: 'to' must be 1", ratioFrom, ratioTo)
	}

	newLen := inPcmLen / ratioFrom
	resampled := make([]byte, 0, newLen)

	// For each new sample to be generated, loop through the respective 'ratioFrom' samples in 'c.Data' to add them
	// up and average them. The result is the new sample.
	bAvg := make([]byte, sLen)
	for i := 0; i < newLen/sLen; i++ {
		var sum int
		for j := 0; j < ratioFrom; j++ {
			off := (i*ratioFrom + j) * sLen
			switch c.Format.SFormat {
			case S32_LE:
				sum += int(int32(binary.LittleEndian.Uint32(c.Data[off : off+sLen])))
			case S16_LE:
				sum += int(int16(binary.LittleEndian.Uint16(c.Data[off : off+sLen])))
			case S8:
				sum += int(int8(c.Data[off]))
			}
		}
		avg := sum / ratioFrom
		switch c.Format.SFormat {
		case S32_LE:
			binary.LittleEndian.PutUint32(bAvg, uint32(avg))
		case S16_LE:
			binary.LittleEndian.PutUint16(bAvg, uint16(avg))
		case S8:
			bAvg[0] = byte(int8(avg))
		}
		resampled = append(resampled, bAvg...)
	}

	// Return a new Buffer with resampled data.
	return Buffer{
		Format: BufferFormat{
			Channels: c.Format.Channels,
			SFormat:  c.Format.SFormat,
			Rate:     rate,
		},
		Data: resampled,
	}, nil
}

// StereoToMono returns raw mono audio data generated from only the left channel from
// the given stereo Buffer
func StereoToMono(c Buffer) (Buffer, error) {
	if c.Format.Channels == 1 {
		return c, nil
	}
	if c.Format.Channels != 2 {
		return Buffer{}, errors.Errorf("audio is not stereo or mono, it has %v channels", c.Format.Channels)
	}

	stereoSampleBytes, err := sampleLen(c.Format)
	if err != nil {
		return Buffer{}, err
	}

	recLength := len(c.Data)
	mono := make([]byte, recLength/2)

	// Convert to mono: for each byte in the stereo recording, if it's in the first half of a stereo sample
	// (left channel), add it to the new mono audio data.
	var inc int
	for i := 0; i < recLength; i++ {
		if i%stereoSampleBytes < stereoSampleBytes/2 {
			mono[inc] = c.Data[i]
			inc++
		}
	}

	// Return a new Buffer with the mono data.
	return Buffer{
		Format: BufferFormat{
			Channels: 1,
			SFormat:  c.Format.SFormat,
			Rate:     c.Format.Rate,
		},
		Data: mono,
	}, nil
}

// ToS8 reduces the bit depth of the given Buffer to signed 8-bit samples by
// taking the high byte of each sample, returning a new Buffer. A Buffer
// already in S8 format is returned unchanged.
func ToS8(c Buffer) (Buffer, error) {
	var width int
	switch c.Format.SFormat {
	case S8:
		return c, nil
	case S16_LE:
		width = 2
	case S32_LE:
		width = 4
	default:
		return Buffer{}, errors.Errorf("unhandled sample format: %v", c.Format.SFormat)
	}

	reduced := make([]byte, len(c.Data)/width)
	for i := range reduced {
		// Samples are little endian, so the high byte is the last of each sample.
		reduced[i] = c.Data[i*width+width-1]
	}

	return Buffer{
		Format: BufferFormat{
			Channels: c.Format.Channels,
			SFormat:  S8,
			Rate:     c.Format.Rate,
		},
		Data: reduced,
	}, nil
}

// gcd is used for calculating the greatest common divisor of two positive integers, a and b.
// assumes given a and b are positive.
func gcd(a, b uint) uint {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// String returns the string representation of a SampleFormat.
func (f SampleFormat) String() string {
	switch f {
	case S16_LE:
		return "S16_LE"
	case S32_LE:
		return "S32_LE"
	case S8:
		return "S8"
	default:
		return "Unknown"
	}
}

// SFFromString takes a string representing a sample format and returns the corresponding SampleFormat.
func SFFromString(s string) (SampleFormat, error) {
	switch s {
	case "S16_LE":
		return S16_LE, nil
	case "S32_LE":
		return S32_LE, nil
	case "S8":
		return S8, nil
	default:
		return Unknown, errors.Errorf("unknown sample format (%s)", s)
	}
}
