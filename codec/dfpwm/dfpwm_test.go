/*
NAME
  dfpwm_test.go

DESCRIPTION
  dfpwm_test.go contains tests for the dfpwm package.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dfpwm

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// rampPCM returns n samples of a repeating ramp, as signed 8-bit PCM.
func rampPCM(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(int8(i*7 - 64))
	}
	return p
}

// TestEncodeSilence checks the bit order of the packed output against a
// hand-computed byte. Encoding silence from initial state yields alternating
// bits starting with 0, so LSB-first packing must give 0xAA.
func TestEncodeSilence(t *testing.T) {
	got := Encode(make([]byte, 8))
	want := []byte{0xAA}
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected silence encoding: got %#v, want %#v", got, want)
	}
}

// TestEncodeFullScale checks that a sustained maximum input encodes to a run
// of 1 bits.
func TestEncodeFullScale(t *testing.T) {
	pcm := bytes.Repeat([]byte{byte(int8(127))}, 8)
	got := Encode(pcm)
	want := []byte{0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected full-scale encoding: got %#v, want %#v", got, want)
	}
}

// TestDecodeTrajectory checks the raw decoder output for a known byte
// against the hand-computed charge trajectory.
func TestDecodeTrajectory(t *testing.T) {
	got := Decode([]byte{0xAA})
	want := []byte{0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00} // -1, 0 alternating.
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected decode trajectory: got %#v, want %#v", got, want)
	}
}

// TestDecodeDeterministic checks that two freshly created decoders produce
// identical output for the same bitstream.
func TestDecodeDeterministic(t *testing.T) {
	data := Encode(rampPCM(128))

	var a, b bytes.Buffer
	if _, err := NewDecoder(&a).Write(data); err != nil {
		t.Fatalf("unexpected error from decoder write: %v", err)
	}
	if _, err := NewDecoder(&b).Write(data); err != nil {
		t.Fatalf("unexpected error from decoder write: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("fresh decoders disagree on the same bitstream")
	}

	a.Reset()
	b.Reset()
	if _, err := NewSmoothedDecoder(&a).Write(data); err != nil {
		t.Fatalf("unexpected error from smoothed decoder write: %v", err)
	}
	if _, err := NewSmoothedDecoder(&b).Write(data); err != nil {
		t.Fatalf("unexpected error from smoothed decoder write: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("fresh smoothed decoders disagree on the same bitstream")
	}
}

// TestEncodeChunked checks that encoding a stream in two writes against one
// persistent Encoder matches the one-shot encoding byte for byte, for every
// possible split point, including splits that land mid-byte.
func TestEncodeChunked(t *testing.T) {
	pcm := rampPCM(41)
	want := Encode(pcm)

	for split := 0; split <= len(pcm); split++ {
		var buf bytes.Buffer
		e := NewEncoder(&buf)
		if _, err := e.Write(pcm[:split]); err != nil {
			t.Fatalf("unexpected error from encoder write: %v", err)
		}
		if _, err := e.Write(pcm[split:]); err != nil {
			t.Fatalf("unexpected error from encoder write: %v", err)
		}
		if err := e.Flush(); err != nil {
			t.Fatalf("unexpected error from encoder flush: %v", err)
		}
		if !bytes.Equal(buf.Bytes(), want) {
			t.Errorf("split at %d produced different bitstream: got %#v, want %#v", split, buf.Bytes(), want)
		}
	}
}

// TestEncoderStateCarryOver checks that predictor state persists across
// streams on one Encoder: encoding stream B after stream A must differ from
// encoding B alone, so callers must allocate fresh state per stream.
func TestEncoderStateCarryOver(t *testing.T) {
	a := bytes.Repeat([]byte{byte(int8(127))}, 16)
	b := bytes.Repeat([]byte{0x01}, 8)

	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.Write(a)
	buf.Reset()
	e.Write(b)

	fresh := Encode(b)
	if bytes.Equal(buf.Bytes(), fresh) {
		t.Error("stale encoder produced the same output as a fresh one")
	}
}

// TestStrengthBounds checks that a long same-direction run saturates the
// adaptation strength at its ceiling and an alternating signal drives it to
// its floor, never leaving [strengthMin, strengthMax] in either phase.
func TestStrengthBounds(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	for i := 0; i < 2000; i++ {
		e.Write([]byte{byte(int8(127))})
		if e.strength > strengthMax {
			t.Fatalf("strength %d exceeded ceiling %d at sample %d", e.strength, strengthMax, i)
		}
	}
	if e.strength != strengthMax {
		t.Errorf("strength did not saturate at ceiling: got %d, want %d", e.strength, strengthMax)
	}

	for i := 0; i < 2000; i++ {
		s := byte(int8(127))
		if i%2 == 1 {
			s = 0x80 // -128 as two's complement.
		}
		e.Write([]byte{s})
		if e.strength < strengthMin {
			t.Fatalf("strength %d fell below floor %d at sample %d", e.strength, strengthMin, i)
		}
	}
	if e.strength != strengthMin {
		t.Errorf("strength did not settle at floor: got %d, want %d", e.strength, strengthMin)
	}
}

// TestEncodePartialByte checks that an input of 5 samples yields exactly one
// output byte with the 3 unused high bit positions zero. Silence forces the
// temporal bits 0,1,0,1,0, so the padded byte must be 0x0A.
func TestEncodePartialByte(t *testing.T) {
	got := Encode(make([]byte, 5))
	want := []byte{0x0A}
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected padded encoding: got %#v, want %#v", got, want)
	}
}

// TestRoundTripTrajectory checks that the raw decoder reproduces the
// encoder's internal charge trajectory sample for sample.
func TestRoundTripTrajectory(t *testing.T) {
	pcm := rampPCM(64)

	var comp bytes.Buffer
	e := NewEncoder(&comp)
	want := make([]int8, 0, len(pcm))
	for _, s := range pcm {
		if _, err := e.Write([]byte{s}); err != nil {
			t.Fatalf("unexpected error from encoder write: %v", err)
		}
		want = append(want, int8(e.charge))
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("unexpected error from encoder flush: %v", err)
	}

	decoded := Decode(comp.Bytes())
	got := make([]int8, len(pcm))
	for i := range got {
		got[i] = int8(decoded[i])
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded trajectory does not match encoder trajectory (-want +got):\n%s", diff)
	}
}

// TestEncBytes checks the size helpers.
func TestEncBytes(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0}, {1, 1}, {7, 1}, {8, 1}, {9, 2}, {16, 2}, {41, 6},
	}
	for _, tt := range tests {
		if got := EncBytes(tt.n); got != tt.want {
			t.Errorf("EncBytes(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
	if got := DecSamples(6); got != 48 {
		t.Errorf("DecSamples(6) = %d, want 48", got)
	}
}
