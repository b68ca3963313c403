/*
NAME
  dfpwm-netsender - netsender client for sending DFPWM compressed audio to the cloud.

AUTHORS
  Alan Noble <alan@ausocean.org>
  Trek Hopton <trek@ausocean.org>

ACKNOWLEDGEMENTS
  A special thanks to Joel Jensen for his Go ALSA package.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dfpwm-netsender is a NetSender client for sending DFPWM
// compressed audio to the cloud. Audio is captured by means of an ALSA
// recording device, specified by the "source" cloud variable, conditioned
// to 48 kHz mono signed 8-bit PCM, compressed with DFPWM and sent via
// HTTP to the cloud, where it is stored as BinaryData objects. The other
// variables are "mode" and "period", the latter specifying the audio
// period in seconds. DFPWM packs one sample per bit, so each period
// produces period*48000/8 bytes of payload.
package main

import (
	"errors"
	"flag"
	"io"
	"strconv"
	"sync"
	"time"

	yalsa "github.com/yobert/alsa"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/client/pi/netlogger"
	"github.com/ausocean/client/pi/netsender"
	"github.com/ausocean/client/pi/sds"
	"github.com/ausocean/dfpwm/codec/codecutil"
	"github.com/ausocean/dfpwm/codec/dfpwm"
	"github.com/ausocean/dfpwm/codec/pcm"
	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"
)

// Logging related constants.
const (
	logPath      = "/var/log/netsender/dfpwm-netsender.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

const (
	defaultPeriod   = 5 // seconds
	captureChannels = 2
	captureBits     = 16
	rbDuration      = 300 // seconds
	rbTimeout       = 100 * time.Millisecond
	rbNextTimeout   = 100 * time.Millisecond
)

// Client modes.
const (
	modeNormal = "Normal"
	modePaused = "Paused"
)

// audioClient holds everything we need to know about the client.
// Unlike a raw PCM sender, the ring buffer holds DFPWM compressed
// chunks, so a 5 second period at 48 kHz is only 30000 bytes.
type audioClient struct {
	mu sync.Mutex // mu protects the audioClient.

	parameters

	// internals
	dev *yalsa.Device     // audio input device
	pb  pcm.Buffer        // Buffer to contain the direct audio from ALSA.
	buf *pool.Buffer      // Ring buffer of compressed audio ready to be sent.
	ns  *netsender.Sender // our NetSender
	vs  int               // our "var sum" to track var changes
}

type parameters struct {
	mode   string // operating mode, either "Normal" or "Paused"
	source string // name of audio source, or empty for the default source
	period int    // audio period in seconds, 5s by default
}

var log logging.Logger

func main() {
	var logLevel int
	flag.IntVar(&logLevel, "LogLevel", int(logging.Debug), "Specifies log level")
	flag.Parse()

	if logLevel < int(logging.Debug) || logLevel > int(logging.Fatal) {
		logLevel = int(logging.Info)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	nl := netlogger.New()
	log = logging.New(int8(logLevel), io.MultiWriter(fileLog, nl), logSuppress)
	log.Info("dfpwm-netsender: logger initialized")

	var ac audioClient
	var err error
	ac.ns, err = netsender.New(log, nil, sds.ReadSystem, nil)
	if err != nil {
		log.Fatal("netsender.New failed", "error", err.Error())
	}

	// Get audio params and store the current var sum.
	vars, err := ac.ns.Vars()
	if err != nil {
		log.Warning("netsender.Vars failed; using defaults", "error", err.Error())
	}
	ac.params(vars)
	ac.vs = ac.ns.VarSum()

	// Open the requested audio device.
	err = ac.open()
	if err != nil {
		log.Fatal("yalsa.open failed", "error", err.Error())
	}

	// Capture audio in periods of ac.period seconds, and buffer rbDuration
	// seconds of compressed audio in total.
	ab := ac.dev.NewBufferDuration(time.Second * time.Duration(ac.period))
	sf, err := pcm.SFFromString(ab.Format.SampleFormat.String())
	if err != nil {
		log.Error(err.Error())
	}
	ac.pb = pcm.Buffer{
		Format: pcm.BufferFormat{
			SFormat:  sf,
			Channels: uint(ab.Format.Channels),
			Rate:     uint(ab.Format.Rate),
		},
		Data: ab.Data,
	}

	cs := dfpwm.EncBytes(dfpwm.SampleRate * ac.period)
	rbLen := rbDuration / ac.period
	ac.buf = pool.NewBuffer(rbLen, cs, rbTimeout)

	go ac.input()

	ac.output(nl)
}

// params extracts client params from corresponding cloud vars and returns
// true if anything has changed.
func (ac *audioClient) params(vars map[string]string) bool {
	// We are the only writers to this field
	// so we don't need to lock here.
	p := ac.parameters
	changed := false

	mode := vars["mode"]
	if p.mode != mode {
		p.mode = mode
		changed = true
	}
	source := vars["source"]
	if p.source != source {
		p.source = source
		changed = true
	}
	val, err := strconv.Atoi(vars["period"])
	if err != nil || val < 1 || 5 < val {
		val = defaultPeriod
	}
	if p.period != val {
		p.period = val
		changed = true
	}

	if changed {
		ac.mu.Lock()
		ac.parameters = p
		ac.mu.Unlock()
		log.Debug("params changed")
	}
	log.Debug("parameters", "mode", p.mode, "source", p.source, "period", p.period)
	return changed
}

// open or re-open the recording device with the given name and prepare it to record.
// If name is empty, the first recording device is used.
func (ac *audioClient) open() error {
	if ac.dev != nil {
		log.Debug("closing", "source", ac.source)
		ac.dev.Close()
		ac.dev = nil
	}
	log.Debug("opening", "source", ac.source)

	cards, err := yalsa.OpenCards()
	if err != nil {
		return err
	}
	defer yalsa.CloseCards(cards)

	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			return err
		}
		for _, dev := range devices {
			if dev.Type != yalsa.PCM || !dev.Record {
				continue
			}
			if dev.Title == ac.source || ac.source == "" {
				ac.dev = dev
				break
			}
		}
	}

	if ac.dev == nil {
		return errors.New("no audio source found")
	}
	log.Debug("found audio source", "source", ac.dev.Title)

	err = ac.dev.Open()
	if err != nil {
		return err
	}
	log.Debug("opened audio source")

	_, err = ac.dev.NegotiateChannels(captureChannels)
	if err != nil {
		return err
	}

	// Try to negotiate a rate divisible by the codec rate so that the
	// capture can be downsampled by simple averaging.
	// Note: if a card thinks it can record at a rate but can't actually, this can cause a failure.
	rates := [4]int{48000, 96000, 192000, 44100}
	foundRate := false
	for _, r := range rates {
		if r%dfpwm.SampleRate != 0 {
			continue
		}
		_, err = ac.dev.NegotiateRate(r)
		if err == nil {
			foundRate = true
			log.Debug("sample rate set", "rate", r)
			break
		}
	}
	if !foundRate {
		log.Warning("no available device sample-rates are divisible by the codec rate; resampling may fail")
		_, err = ac.dev.NegotiateRate(dfpwm.SampleRate)
		if err != nil {
			return err
		}
	}

	_, err = ac.dev.NegotiateFormat(yalsa.S16_LE)
	if err != nil {
		return err
	}

	// Either 8192 or 16384 bytes is a reasonable ALSA buffer size.
	_, err = ac.dev.NegotiateBufferSize(8192, 16384)
	if err != nil {
		return err
	}

	if err = ac.dev.Prepare(); err != nil {
		return err
	}
	log.Debug("successfully negotiated ALSA params")
	return nil
}

// input continuously records audio, compresses it and writes it to the
// ring buffer. Re-opens the device and tries again if ALSA returns an error.
// Spends a lot of time sleeping in Paused mode.
func (ac *audioClient) input() {
	for {
		ac.mu.Lock()
		mode := ac.mode
		ac.mu.Unlock()
		if mode == modePaused {
			time.Sleep(time.Duration(ac.period) * time.Second)
			continue
		}
		log.Debug("recording audio for period", "seconds", ac.period)
		ac.mu.Lock()
		err := ac.dev.Read(ac.pb.Data)
		ac.mu.Unlock()
		if err != nil {
			log.Debug("device.Read failed", "error", err.Error())
			ac.mu.Lock()
			err = ac.open() // re-open
			if err != nil {
				log.Fatal("yalsa.open failed", "error", err.Error())
			}
			ac.mu.Unlock()
			continue
		}

		comp, err := ac.compress()
		if err != nil {
			log.Error("audio conditioning failed", "error", err.Error())
			continue
		}

		var n int
		n, err = ac.buf.Write(comp)
		switch err {
		case nil:
			log.Debug("wrote compressed audio to ringbuffer", "length", n)
		case pool.ErrDropped:
			log.Warning("dropped audio")
		default:
			log.Error("unexpected ringbuffer error", "error", err.Error())
			return
		}
	}
}

// compress conditions the captured buffer to the codec's format, i.e.
// 48 kHz mono signed 8-bit PCM, and returns its DFPWM encoding.
// Codec state is not carried between periods, so each chunk decodes
// independently.
func (ac *audioClient) compress() ([]byte, error) {
	b := ac.pb
	var err error

	if b.Format.Channels == 2 {
		b, err = pcm.StereoToMono(b)
		if err != nil {
			return nil, err
		}
	}

	if b.Format.Rate != dfpwm.SampleRate {
		b, err = pcm.Resample(b, dfpwm.SampleRate)
		if err != nil {
			return nil, err
		}
	}

	b, err = pcm.ToS8(b)
	if err != nil {
		return nil, err
	}

	return dfpwm.Encode(b.Data), nil
}

// output continuously reads compressed audio from the ring buffer and sends
// it to the cloud via poll requests. When "B0" is configured as one of the
// inputs, audio data is posted as "B0". When paused, polling continues but
// without sending audio data. Sending is throttled so as to complete one
// pass of this loop approximately every audio period. While audio is sent
// every period, other data is reported only every monitor period. This
// function also handles cloud configuration requests and updating of
// cloud vars.
func (ac *audioClient) output(nl *netlogger.Logger) {
	buf := make([]byte, dfpwm.EncBytes(dfpwm.SampleRate*ac.period))

	mime := codecutil.MimeType(codecutil.DFPWM, dfpwm.SampleRate)
	ip := ac.ns.Param("ip")
	mp, err := strconv.Atoi(ac.ns.Param("mp"))
	if err != nil {
		log.Fatal("mp not an integer")
	}

	report := true         // Report non-audio data.
	reported := time.Now() // When we last did so.

	for {
		var rc int
		start := time.Now()
		audio := false
		var pins []netsender.Pin

		if ac.mode == modePaused {

			// Only send X data when paused (if any).
			if report {
				pins = netsender.MakePins(ip, "X")
			}
		} else {
			n, err := read(ac.buf, buf)
			if err != nil {
				return
			}
			if n == 0 {
				goto sleep
			}
			if n != len(buf) {
				log.Error("unexpected length from read", "length", n)
				return
			}
			if report {
				pins = netsender.MakePins(ip, "")
			} else {
				pins = netsender.MakePins(ip, "B")
			}
			for i, pin := range pins {
				if pin.Name == "B0" {
					audio = true
					pins[i].Value = n
					pins[i].Data = buf
					pins[i].MimeType = mime
				}
			}
		}

		if !(report || audio) {
			goto sleep // nothing to do
		}

		// Populate X pins, if any.
		for i, pin := range pins {
			if pin.Name[0] == 'X' {
				err := sds.ReadSystem(&pins[i])
				if err != nil {
					log.Warning("sds.ReadSystem failed", "error", err.Error())
					// Pin.Value defaults to -1 upon error, so OK to continue.
				}
			}
		}
		_, rc, err = ac.ns.Send(netsender.RequestPoll, pins)
		if err != nil {
			log.Debug("netsender.Send failed", "error", err.Error())
			goto sleep
		}
		err = nl.Send(ac.ns)
		if err != nil {
			log.Warning("logs could not be sent", "error", err.Error())
		}
		if report {
			reported = start
			report = false
		}
		if rc == netsender.ResponseUpdate {
			_, err = ac.ns.Config()
			if err != nil {
				log.Warning("netsender.Config failed", "error", err.Error())
				goto sleep
			}
			ip = ac.ns.Param("ip")
			mp, err = strconv.Atoi(ac.ns.Param("mp"))
			if err != nil {
				log.Fatal("mp not an integer")
			}
		}

		if ac.vs != ac.ns.VarSum() {
			vars, err := ac.ns.Vars()
			if err != nil {
				log.Error("netsender.Vars failed", "error", err.Error())
				goto sleep
			}
			ac.params(vars)
			ac.vs = ac.ns.VarSum()
		}

	sleep:
		pause := ac.period*1000 - int(time.Since(start).Seconds()*1000)
		if pause > 0 {
			time.Sleep(time.Duration(pause) * time.Millisecond)
		}
		if time.Since(reported).Seconds() >= float64(mp) {
			report = true
		}

	}
}

// read reads a full compressed chunk from the ring buffer, returning the
// number of bytes read upon success. Any errors returned are unexpected
// and should be considered fatal.
func read(rb *pool.Buffer, buf []byte) (int, error) {
	chunk, err := rb.Next(rbNextTimeout)
	switch err {
	case nil:
		// Do nothing.
	case pool.ErrTimeout:
		return 0, nil
	case io.EOF:
		log.Error("unexpected EOF from pool.Next")
		return 0, io.ErrUnexpectedEOF
	default:
		log.Error("unexpected error from pool.Next", "error", err.Error())
		return 0, err
	}

	n, err := io.ReadFull(rb, buf[:chunk.Len()])
	if err != nil {
		log.Error("unexpected error from pool.Read", "error", err.Error())
		return n, err
	}

	log.Debug("read compressed audio from ringbuffer", "length", n)
	return n, nil
}
