// Package audio turns microphone input into WAV buffers for transcription.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

// DefaultMinDuration guards against transcription hallucinations on
// near-empty input.
const DefaultMinDuration = 0.5

// ChunkSize is the number of samples per captured chunk.
const ChunkSize = 4096

// Microphone grants access to an input device.
// Open fails with a CodePermission error when access is denied.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture pipeline. Chunks is closed after Close.
type Stream interface {
	SampleRate() int
	Chunks() <-chan []float32
	Close() error
}

// Recording is the result of a successful Stop.
type Recording struct {
	WAV        []byte
	SampleRate int
	Duration   float64
	Chunks     int
}

// Recorder captures one utterance at a time. A Start while already
// recording is ignored.
type Recorder struct {
	mic         Microphone
	minDuration float64
	log         *logrus.Entry

	mu      sync.Mutex
	stream  Stream
	chunks  [][]float32
	collect chan struct{}
}

func NewRecorder(mic Microphone, minDuration float64, log *logrus.Entry) *Recorder {
	if minDuration <= 0 {
		minDuration = DefaultMinDuration
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Recorder{mic: mic, minDuration: minDuration, log: log}
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

func (r *Recorder) Start(ctx context.Context) error {
	const op = "Recorder.Start"

	r.mu.Lock()
	if r.stream != nil {
		r.mu.Unlock()
		r.log.Debug("start ignored: already recording")
		return nil
	}
	r.mu.Unlock()

	stream, err := r.mic.Open(ctx)
	if err != nil {
		if utils.IsCode(err, utils.CodePermission) {
			return err
		}
		return utils.E(utils.CodePermission, op, "microphone access failed", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		// lost a race with a concurrent Start
		_ = stream.Close()
		return nil
	}
	r.stream = stream
	r.chunks = nil
	r.collect = make(chan struct{})
	go r.accumulate(stream, r.collect)

	r.log.WithField("sample_rate", stream.SampleRate()).Info("recording started")
	return nil
}

func (r *Recorder) accumulate(s Stream, done chan struct{}) {
	defer close(done)
	for c := range s.Chunks() {
		cp := make([]float32, len(c))
		copy(cp, c)
		r.mu.Lock()
		r.chunks = append(r.chunks, cp)
		r.mu.Unlock()
	}
}

// Stop releases the microphone and returns the encoded utterance. It returns
// (nil, nil) when nothing is being recorded, and a CodeTooShort error when
// the captured audio is below the minimum duration.
func (r *Recorder) Stop() (*Recording, error) {
	const op = "Recorder.Stop"

	r.mu.Lock()
	stream, done := r.stream, r.collect
	r.mu.Unlock()
	if stream == nil {
		return nil, nil
	}

	closeErr := stream.Close()
	<-done

	r.mu.Lock()
	chunks := r.chunks
	r.stream, r.chunks, r.collect = nil, nil, nil
	r.mu.Unlock()

	if closeErr != nil {
		r.log.WithError(closeErr).Warn("microphone close failed")
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	merged := make([]float32, 0, total)
	for _, c := range chunks {
		merged = append(merged, c...)
	}

	rate := stream.SampleRate()
	if rate <= 0 {
		return nil, utils.E(utils.CodeInternal, op, "invalid sample rate", nil)
	}
	duration := float64(len(merged)) / float64(rate)

	log := r.log.WithFields(logrus.Fields{
		"chunks":   len(chunks),
		"samples":  len(merged),
		"duration": duration,
	})

	if duration < r.minDuration {
		log.Warn("recording too short")
		return nil, utils.E(utils.CodeTooShort, op, fmt.Sprintf("recording too short, please speak for at least %.1f seconds", r.minDuration), nil)
	}

	wav, err := EncodeWAV(merged, rate)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode recording", err)
	}
	log.WithField("size", len(wav)).Info("recording stopped")

	return &Recording{WAV: wav, SampleRate: rate, Duration: duration, Chunks: len(chunks)}, nil
}
