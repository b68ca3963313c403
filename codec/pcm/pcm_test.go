/*
NAME
  pcm_test.go

DESCRIPTION
  pcm_test.go contains functions for testing the pcm package.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// s16 packs the given samples as little-endian signed 16-bit PCM.
func s16(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

// TestResample tests the Resample function by downsampling a known signal
// 4:1 and comparing against the expected decimated averages.
func TestResample(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 48000, SFormat: S16_LE},
		Data:   s16(100, 200, 300, 400, -100, -200, -300, -400),
	}

	resampled, err := Resample(buf, 12000)
	if err != nil {
		t.Fatalf("unexpected error from Resample: %v", err)
	}

	exp := s16(250, -250)
	if !bytes.Equal(resampled.Data, exp) {
		t.Errorf("resampled data does not match expected result: got %v, want %v", resampled.Data, exp)
	}
	if resampled.Format.Rate != 12000 {
		t.Errorf("resampled rate is %d, want 12000", resampled.Format.Rate)
	}
}

// TestResampleS8 tests 8-bit resampling, which the DFPWM pipeline uses after
// bit-depth reduction.
func TestResampleS8(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 96000, SFormat: S8},
		Data:   []byte{10, 30, 0xF6, 0xE2}, // 10, 30, -10, -30.
	}

	resampled, err := Resample(buf, 48000)
	if err != nil {
		t.Fatalf("unexpected error from Resample: %v", err)
	}

	exp := []byte{20, 0xEC} // 20, -20.
	if !bytes.Equal(resampled.Data, exp) {
		t.Errorf("resampled data does not match expected result: got %v, want %v", resampled.Data, exp)
	}
}

// TestResampleBadRatio checks that an uneven rate ratio is rejected.
func TestResampleBadRatio(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 44100, SFormat: S16_LE},
		Data:   s16(0, 0, 0, 0),
	}
	if _, err := Resample(buf, 48000); err == nil {
		t.Error("expected error for uneven rate ratio, got nil")
	}
}

// TestStereoToMono tests the StereoToMono function with interleaved stereo
// samples, expecting only the left channel in the result.
func TestStereoToMono(t *testing.T) {
	buf := Buffer{
		Format: BufferFormat{Channels: 2, Rate: 48000, SFormat: S16_LE},
		Data:   s16(1000, -1000, 2000, -2000, 3000, -3000),
	}

	mono, err := StereoToMono(buf)
	if err != nil {
		t.Fatalf("unexpected error from StereoToMono: %v", err)
	}

	exp := s16(1000, 2000, 3000)
	if !bytes.Equal(mono.Data, exp) {
		t.Errorf("converted data does not match expected result: got %v, want %v", mono.Data, exp)
	}
	if mono.Format.Channels != 1 {
		t.Errorf("mono channels is %d, want 1", mono.Format.Channels)
	}
}

// TestToS8 tests bit-depth reduction from 16 and 32 bit formats.
func TestToS8(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
		want []byte
	}{
		{
			name: "from S16_LE",
			buf: Buffer{
				Format: BufferFormat{Channels: 1, Rate: 48000, SFormat: S16_LE},
				Data:   s16(0x7F00, -0x8000, 0x0100),
			},
			want: []byte{0x7F, 0x80, 0x01},
		},
		{
			name: "from S32_LE",
			buf: Buffer{
				Format: BufferFormat{Channels: 1, Rate: 48000, SFormat: S32_LE},
				Data:   []byte{0, 0, 0, 0x7F, 0, 0, 0, 0x80},
			},
			want: []byte{0x7F, 0x80},
		},
		{
			name: "already S8",
			buf: Buffer{
				Format: BufferFormat{Channels: 1, Rate: 48000, SFormat: S8},
				Data:   []byte{0x01, 0xFF},
			},
			want: []byte{0x01, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToS8(tt.buf)
			if err != nil {
				t.Fatalf("unexpected error from ToS8: %v", err)
			}
			if !bytes.Equal(got.Data, tt.want) {
				t.Errorf("reduced data does not match expected result: got %v, want %v", got.Data, tt.want)
			}
			if got.Format.SFormat != S8 {
				t.Errorf("reduced format is %v, want S8", got.Format.SFormat)
			}
		})
	}
}

// TestSFFromString checks round-tripping of sample format names.
func TestSFFromString(t *testing.T) {
	for _, f := range []SampleFormat{S16_LE, S32_LE, S8} {
		got, err := SFFromString(f.String())
		if err != nil {
			t.Errorf("unexpected error for %v: %v", f, err)
		}
		if got != f {
			t.Errorf("SFFromString(%q) = %v, want %v", f.String(), got, f)
		}
	}
	if _, err := SFFromString("F32_BE"); err == nil {
		t.Error("expected error for unknown format, got nil")
	}
}
