package stt

import (
	"context"
	"time"
)

const (
	SampleRateHertz   = 16000
	AudioChannelCount = 1
)

// StreamConfig is sent once, before any audio, at the start of a recognition
// stream. Audio is always little-endian 16-bit PCM.
type StreamConfig struct {
	LanguageCode      string
	Model             string
	SampleRateHertz   int32
	AudioChannelCount int32

	EnableWordTimeOffsets      bool
	EnableWordConfidence       bool
	EnableAutomaticPunctuation bool
	InterimResults             bool
}

// language example: "en-US", "pt-BR"
func DefaultStreamConfig(language, model string) StreamConfig {
	if language == "" {
		language = "en-US"
	}
	return StreamConfig{
		LanguageCode:               language,
		Model:                      model,
		SampleRateHertz:            SampleRateHertz,
		AudioChannelCount:          AudioChannelCount,
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		EnableAutomaticPunctuation: true,
		InterimResults:             true,
	}
}

// RecognitionStream is one duplex recognition call. SendConfig must precede
// SendAudio. Send* and CloseSend may be called from one goroutine while Recv
// runs on another. Recv returns io.EOF once the provider has finished.
type RecognitionStream interface {
	SendConfig(cfg StreamConfig) error
	SendAudio(frame []byte) error
	CloseSend() error
	Recv() (*Response, error)
}

type StreamingProvider interface {
	// StreamingRecognize opens a stream bound to ctx; cancelling ctx aborts any
	// blocked Send or Recv.
	StreamingRecognize(ctx context.Context) (RecognitionStream, error)
	Close() error
}

type Response struct {
	Results []Result
}

type Result struct {
	IsFinal      bool
	Alternatives []Alternative
}

type Alternative struct {
	Transcript string
	Confidence float32
	Words      []Word // nil unless word offsets were requested
}

type Word struct {
	Word        string
	StartOffset time.Duration
	EndOffset   time.Duration
	Confidence  float32
}
