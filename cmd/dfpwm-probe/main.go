/*
NAME
  dfpwm-probe - command-line program for measuring DFPWM round-trip quality.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dfpwm-probe is a command-line program that encodes and decodes a
// raw signed 8-bit PCM file and reports reconstruction error statistics.
// DFPWM is lossy; this gives a quick read on how a particular signal fares.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/dfpwm/codec/dfpwm"
)

func main() {
	var inPath string
	var smooth bool
	flag.StringVar(&inPath, "in", "data.pcm", "file path of raw signed 8-bit pcm input")
	flag.BoolVar(&smooth, "smooth", true, "measure against the smoothed decoder output")
	flag.Parse()

	pcm, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(pcm) == 0 {
		log.Fatal("no samples to probe")
	}

	decoded := roundTrip(pcm, smooth)

	// Reconstruction error per sample, in 8-bit amplitude units.
	errs := make([]float64, len(pcm))
	sig := make([]float64, len(pcm))
	for i := range pcm {
		sig[i] = float64(int8(pcm[i]))
		errs[i] = float64(int8(decoded[i])) - sig[i]
	}

	meanErr, stdErr := stat.MeanStdDev(errs, nil)

	var sigPow, errPow float64
	for i := range sig {
		sigPow += sig[i] * sig[i]
		errPow += errs[i] * errs[i]
	}
	snr := math.Inf(1)
	if errPow > 0 {
		snr = 10 * math.Log10(sigPow/errPow)
	}

	fmt.Printf("samples: %d\n", len(pcm))
	fmt.Printf("mean error: %.3f\n", meanErr)
	fmt.Printf("error std dev: %.3f\n", stdErr)
	fmt.Printf("SNR: %.2f dB\n", snr)
}

// roundTrip encodes and decodes the given samples with fresh codec state.
func roundTrip(pcm []byte, smooth bool) []byte {
	comp := dfpwm.Encode(pcm)
	if !smooth {
		return dfpwm.Decode(comp)
	}

	var buf bytes.Buffer
	dec := dfpwm.NewSmoothedDecoder(&buf)
	if _, err := dec.Write(comp); err != nil {
		log.Fatal(err)
	}
	return buf.Bytes()
}
