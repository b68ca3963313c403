/*
NAME
  dfpwm.go

DESCRIPTION
  dfpwm.go contains functions to transcode between PCM and DFPWM.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dfpwm provides functions to transcode between PCM and DFPWM
// (Dynamic Filter Pulse-Width Modulation), a 1-bit-per-sample lossy audio
// codec driven by an adaptive delta predictor. Input and output PCM is
// mono signed 8-bit, conventionally played back at 48 kHz.
package dfpwm

import (
	"bytes"
	"io"
)

// SampleRate is the conventional DFPWM playback rate in Hz. The bitstream
// itself carries no rate; this is an out-of-band convention.
const SampleRate = 48000

const (
	prec        = 10              // Fixed-point precision of the strength accumulator.
	chargeMax   = 127             // Reconstruction target for a 1 bit.
	chargeMin   = -128            // Reconstruction target for a 0 bit.
	strengthMax = 1<<prec - 1     // Adaptation ceiling.
	strengthMin = 2 << (prec - 8) // Adaptation floor; keeps the predictor from stalling.

	// One-pole smoothing coefficient applied by smoothed decoders.
	lowPassStrength = 140
)

// update advances the predictor one bit period, returning the new charge
// and strength. The same trajectory is followed on both sides of the codec:
// the encoder runs it on the bits it emits and the decoder on the bits it
// reads, so a decoder fed an encoder's output reconstructs the encoder's
// internal charge sequence exactly.
func update(bit, lastBit bool, charge, strength int) (int, int) {
	target := chargeMin
	if bit {
		target = chargeMax
	}

	// Move charge toward the target by a strength-scaled step, rounding to
	// nearest. The step cannot overshoot, so charge stays in [-128, 127].
	next := charge + ((strength*(target-charge) + (1 << (prec - 1))) >> prec)
	if next == charge && charge != target {
		// Rounding stalled short of the target; nudge one unit.
		if bit {
			next++
		} else {
			next--
		}
	}

	// A run of same-direction bits ramps strength toward the ceiling for
	// faster tracking; a flip ramps it toward zero for noise immunity.
	starget := 0
	if bit == lastBit {
		starget = strengthMax
	}
	if strength != starget {
		if bit == lastBit {
			strength++
		} else {
			strength--
		}
	}
	if strength < strengthMin {
		strength = strengthMin
	}

	return next, strength
}

// Encoder is used to encode to DFPWM from PCM data.
//
// An Encoder carries predictor state between calls to Write, so one Encoder
// must be used for exactly one logical audio stream, with writes made in
// stream order from a single caller. Reusing an Encoder for an unrelated
// stream produces a decodable but acoustically wrong bitstream.
type Encoder struct {
	// dst is the destination for DFPWM-encoded data.
	dst io.Writer

	charge   int  // Running estimate of the reconstructed signal level.
	strength int  // Adaptation rate of the charge.
	lastBit  bool // Previously encoded bit.

	cur   byte // Output byte currently being filled.
	nBits int  // Number of bits in cur.
}

// Decoder is used to decode from DFPWM to PCM data.
//
// Like the Encoder, a Decoder is bound to one logical stream and must be
// written to sequentially.
type Decoder struct {
	// dst is the destination for PCM-encoded data.
	dst io.Writer

	charge   int  // Running estimate of the reconstructed signal level.
	strength int  // Adaptation rate of the charge.
	lastBit  bool // Previously decoded bit.

	lastCharge int  // Charge of the previous bit period, for anti-jerk averaging.
	lowPass    int  // One-pole low-pass accumulator.
	smooth     bool // Whether output is smoothed or the raw charge trajectory.
}

// NewEncoder returns a new DFPWM Encoder. Samples written to the Encoder
// are reduced to one bit each and packed LSB-first into bytes written to dst.
func NewEncoder(dst io.Writer) *Encoder {
	return &Encoder{dst: dst}
}

// encodeSample takes a single signed 8-bit PCM sample and returns the
// encoded bit, advancing the predictor.
func (e *Encoder) encodeSample(sample int8) bool {
	v := int(sample)
	// Move up whenever the target sits above the charge. The tie at the top
	// rail also moves up, so a sustained +127 input holds a run of 1 bits.
	bit := v > e.charge || (v == e.charge && e.charge == chargeMax)
	e.charge, e.strength = update(bit, e.lastBit, e.charge, e.strength)
	e.lastBit = bit
	return bit
}

// Write encodes len(p) samples of signed 8-bit PCM, one sample per byte,
// writing any completed DFPWM bytes to the Encoder's destination. Bits of a
// partially filled final byte are held in the Encoder until a subsequent
// Write completes the byte or Flush pads it, so a stream may be written in
// chunks split at any sample boundary without altering the output.
// The returned count is the number of samples consumed from p.
func (e *Encoder) Write(p []byte) (int, error) {
	out := make([]byte, 0, EncBytes(e.nBits+len(p)))
	for _, s := range p {
		if e.encodeSample(int8(s)) {
			e.cur |= 1 << e.nBits
		}
		e.nBits++
		if e.nBits == 8 {
			out = append(out, e.cur)
			e.cur, e.nBits = 0, 0
		}
	}
	if _, err := e.dst.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush pads the unused high bit positions of a partially filled final byte
// with zero bits and writes it out. Flush is only meaningful at the end of a
// stream whose sample count is not a multiple of 8; flushing mid-stream
// inserts padding bits that will decode as spurious samples.
func (e *Encoder) Flush() error {
	if e.nBits == 0 {
		return nil
	}
	_, err := e.dst.Write([]byte{e.cur})
	e.cur, e.nBits = 0, 0
	return err
}

// NewDecoder returns a new DFPWM Decoder. Decoded samples written to dst
// are the raw charge trajectory of the predictor, which is exactly the
// trajectory the originating encoder followed internally.
func NewDecoder(dst io.Writer) *Decoder {
	return &Decoder{dst: dst}
}

// NewSmoothedDecoder returns a DFPWM Decoder that applies the reference
// design's anti-jerk averaging and one-pole low-pass to its output. The
// predictor trajectory is identical to a plain Decoder's; only the emitted
// samples are smoothed. This is the decoder playback tools should use.
func NewSmoothedDecoder(dst io.Writer) *Decoder {
	return &Decoder{dst: dst, smooth: true}
}

// decodeBit advances the predictor by one bit and returns the reconstructed
// signed 8-bit sample.
func (d *Decoder) decodeBit(bit bool) int8 {
	charge, strength := update(bit, d.lastBit, d.charge, d.strength)

	out := charge
	if d.smooth {
		// On a direction flip the reference decoder emits the midpoint of
		// the last two charges before low-pass filtering.
		v := charge
		if bit != d.lastBit {
			v = (d.lastCharge + charge + 1) >> 1
		}
		d.lastCharge = charge
		d.lowPass += (lowPassStrength*(v-d.lowPass) + 128) >> 8
		out = d.lowPass
	}

	d.charge, d.strength, d.lastBit = charge, strength, bit
	return int8(out)
}

// Write decodes len(p) bytes of DFPWM, extracting bits LSB-first and writing
// one signed 8-bit PCM sample per bit to the Decoder's destination. Every
// bit present is decoded; discarding samples that came from end-of-stream
// padding is the caller's concern, since the bitstream carries no length.
// The returned count is the number of DFPWM bytes consumed from p.
func (d *Decoder) Write(p []byte) (int, error) {
	out := make([]byte, 0, DecSamples(len(p)))
	for _, b := range p {
		for i := 0; i < 8; i++ {
			out = append(out, byte(d.decodeBit(b&1 != 0)))
			b >>= 1
		}
	}
	if _, err := d.dst.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Encode is a one-shot helper that encodes a complete buffer of signed
// 8-bit PCM with a fresh Encoder, padding the final byte. It is not
// composable across calls: each call starts from initial predictor state,
// so multi-chunk streams must use a single Encoder instead.
func Encode(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(EncBytes(len(pcm)))
	e := NewEncoder(&buf)
	e.Write(pcm)
	e.Flush()
	return buf.Bytes()
}

// Decode is a one-shot helper that decodes a complete DFPWM buffer with a
// fresh raw Decoder. Like Encode, it is not composable across calls.
func Decode(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(DecSamples(len(data)))
	d := NewDecoder(&buf)
	d.Write(data)
	return buf.Bytes()
}

// EncBytes returns the number of DFPWM bytes generated when encoding n PCM
// samples, including a padded final byte when n is not a multiple of 8.
func EncBytes(n int) int {
	return (n + 7) / 8
}

// DecSamples returns the number of PCM samples produced when decoding n
// DFPWM bytes.
func DecSamples(n int) int {
	return n * 8
}
