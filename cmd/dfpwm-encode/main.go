/*
NAME
  dfpwm-encode - command-line program for encoding/compressing audio to a dfpwm file.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dfpwm-encode is a command-line program for encoding WAV, FLAC or
// raw PCM audio to a DFPWM file. WAV and FLAC input is conditioned to the
// mono signed 8-bit 48 kHz form DFPWM expects; raw input is assumed to be in
// that form already and is streamed through the encoder in chunks.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ausocean/dfpwm/codec/codecutil"
	"github.com/ausocean/dfpwm/codec/dfpwm"
	"github.com/ausocean/dfpwm/codec/flac"
	"github.com/ausocean/dfpwm/codec/pcm"
)

// Chunk size for streaming raw PCM through the encoder.
const defaultChunkSize = 8192

func main() {
	var (
		inPath    string
		outPath   string
		lowPass   float64
		chunkSize int
	)
	flag.StringVar(&inPath, "in", "data.wav", "file path of input data (.wav, .flac or raw signed 8-bit pcm)")
	flag.StringVar(&outPath, "out", "encoded.dfpwm", "file path of output")
	flag.Float64Var(&lowPass, "lowpass", 0, "cutoff frequency of pre-encode lowpass filter in Hz, 0 to disable")
	flag.IntVar(&chunkSize, "chunk", defaultChunkSize, "chunk size in bytes for streaming raw pcm")
	flag.Parse()

	switch strings.ToLower(filepath.Ext(inPath)) {
	case ".wav", ".flac":
		buf, err := readAudio(inPath)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Read", len(buf.Data), "bytes of", buf.Format.SFormat.String(), "PCM from file", inPath)

		buf, err = condition(buf, lowPass)
		if err != nil {
			log.Fatal(err)
		}

		// Encode dfpwm.
		comp := bytes.NewBuffer(make([]byte, 0, dfpwm.EncBytes(len(buf.Data))))
		enc := dfpwm.NewEncoder(comp)
		if _, err := enc.Write(buf.Data); err != nil {
			log.Fatal(err)
		}
		if err := enc.Flush(); err != nil {
			log.Fatal(err)
		}

		err = os.WriteFile(outPath, comp.Bytes(), 0644)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Encoded and wrote", comp.Len(), "bytes to file", outPath)
	default:
		// Raw signed 8-bit mono PCM; stream it through the encoder in chunks.
		n, err := encodeRaw(inPath, outPath, chunkSize)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Encoded and wrote", n, "bytes to file", outPath)
	}
}

// readAudio reads a WAV or FLAC file into a 16-bit PCM buffer.
func readAudio(path string) (pcm.Buffer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return pcm.Buffer{}, err
	}

	if strings.ToLower(filepath.Ext(path)) == ".flac" {
		return flac.Decode(b)
	}

	d := gowav.NewDecoder(bytes.NewReader(b))
	if !d.IsValidFile() {
		return pcm.Buffer{}, fmt.Errorf("%s is not a valid wav file", path)
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("could not decode wav: %w", err)
	}

	return intBufferToPCM(ib, int(d.BitDepth)), nil
}

// intBufferToPCM converts a go-audio IntBuffer of the given source bit depth
// to an S16_LE pcm.Buffer.
func intBufferToPCM(ib *goaudio.IntBuffer, bitDepth int) pcm.Buffer {
	out := pcm.Buffer{
		Format: pcm.BufferFormat{
			SFormat:  pcm.S16_LE,
			Rate:     uint(ib.Format.SampleRate),
			Channels: uint(ib.Format.NumChannels),
		},
		Data: make([]byte, 0, 2*len(ib.Data)),
	}

	shift := bitDepth - 16
	for _, v := range ib.Data {
		if bitDepth == 8 {
			// 8-bit wav samples are unsigned.
			v = (v - 128) << 8
		} else if shift > 0 {
			v >>= shift
		} else if shift < 0 {
			v <<= -shift
		}
		out.Data = append(out.Data, byte(v), byte(v>>8))
	}
	return out
}

// condition converts arbitrary input audio to mono signed 8-bit at the DFPWM
// rate, optionally band-limiting it first.
func condition(buf pcm.Buffer, lowPass float64) (pcm.Buffer, error) {
	var err error
	if buf.Format.Channels > 1 {
		buf, err = pcm.StereoToMono(buf)
		if err != nil {
			return pcm.Buffer{}, fmt.Errorf("could not convert to mono: %w", err)
		}
	}

	if lowPass > 0 {
		lp, err := pcm.NewLowPass(lowPass, buf.Format, 500)
		if err != nil {
			return pcm.Buffer{}, fmt.Errorf("could not create lowpass filter: %w", err)
		}
		buf.Data, err = lp.Apply(buf)
		if err != nil {
			return pcm.Buffer{}, fmt.Errorf("could not apply lowpass filter: %w", err)
		}
	}

	if buf.Format.Rate != dfpwm.SampleRate {
		buf, err = pcm.Resample(buf, dfpwm.SampleRate)
		if err != nil {
			return pcm.Buffer{}, fmt.Errorf("could not resample to %d Hz: %w", dfpwm.SampleRate, err)
		}
	}

	buf, err = pcm.ToS8(buf)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("could not reduce bit depth: %w", err)
	}
	return buf, nil
}

// encodeRaw streams a raw signed 8-bit PCM file through a single encoder in
// bounded chunks, returning the number of DFPWM bytes written.
func encodeRaw(inPath, outPath string, chunkSize int) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	cw := &countWriter{w: out}
	enc := dfpwm.NewEncoder(cw)

	lex, err := codecutil.NewByteLexer(chunkSize)
	if err != nil {
		return 0, err
	}
	if err := lex.Lex(enc, in, 0); err != io.EOF {
		return cw.n, err
	}
	if err := enc.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// countWriter counts the bytes written through it.
type countWriter struct {
	w io.Writer
	n int
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
