/*
NAME
  dfpwm-decode - command-line program for decoding a dfpwm file to playable audio.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dfpwm-decode is a command-line program for decoding a dfpwm file
// to a WAV file, or to raw signed 8-bit PCM.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ausocean/dfpwm/codec/dfpwm"
	"github.com/ausocean/dfpwm/codec/wav"
)

// This program accepts an input dfpwm file and outputs the decoded audio.
// Input and output file names can be specified as arguments; output format
// is chosen by the output file extension.
func main() {
	var inPath string
	var outPath string
	var raw bool
	flag.StringVar(&inPath, "in", "encoded.dfpwm", "file path of input data")
	flag.StringVar(&outPath, "out", "decoded.wav", "file path of output (.wav, anything else raw pcm)")
	flag.BoolVar(&raw, "rawcharge", false, "emit the raw charge trajectory instead of smoothed audio")
	flag.Parse()

	// Read dfpwm.
	comp, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Read", len(comp), "bytes from file", inPath)

	// Decode dfpwm.
	decoded := bytes.NewBuffer(make([]byte, 0, dfpwm.DecSamples(len(comp))))
	var dec *dfpwm.Decoder
	if raw {
		dec = dfpwm.NewDecoder(decoded)
	} else {
		dec = dfpwm.NewSmoothedDecoder(decoded)
	}
	if _, err := dec.Write(comp); err != nil {
		log.Fatal(err)
	}

	out := decoded.Bytes()
	if strings.ToLower(filepath.Ext(outPath)) == ".wav" {
		// WAV stores 8-bit PCM unsigned, so offset the signed samples.
		for i := range out {
			out[i] ^= 0x80
		}
		w := wav.WAV{Metadata: wav.Metadata{
			AudioFormat: wav.PCMFormat,
			Channels:    1,
			SampleRate:  dfpwm.SampleRate,
			BitDepth:    8,
		}}
		if _, err := w.Write(out); err != nil {
			log.Fatal(err)
		}
		out = w.Audio
	}

	// Save audio to file.
	err = os.WriteFile(outPath, out, 0644)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Decoded and wrote", len(out), "bytes to file", outPath)
}
