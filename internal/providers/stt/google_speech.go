package stt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/durationpb"
)

var ErrConfigNotSent = errors.New("stt: audio sent before stream config")

type GoogleSpeech struct {
	c *speech.Client

	// projects/{project}/locations/{location}/recognizers/_
	Recognizer string
}

// NewGoogleSpeech dials the regional Speech-to-Text v2 endpoint. The implicit
// "_" recognizer is used so no recognizer resource has to be provisioned.
func NewGoogleSpeech(ctx context.Context, projectID, location string, opts ...option.ClientOption) (*GoogleSpeech, error) {
	if projectID == "" {
		return nil, errors.New("stt: project id is required")
	}
	if location == "" {
		location = "global"
	}
	if location != "global" {
		opts = append([]option.ClientOption{
			option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:443", location)),
		}, opts...)
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:          c,
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", projectID, location),
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) StreamingRecognize(ctx context.Context) (RecognitionStream, error) {
	s, err := g.c.StreamingRecognize(ctx)
	if err != nil {
		return nil, err
	}
	return &googleStream{s: s, recognizer: g.Recognizer}, nil
}

type googleStream struct {
	s          speechpb.Speech_StreamingRecognizeClient
	recognizer string

	mu         sync.Mutex
	configured bool
}

func (g *googleStream) SendConfig(cfg StreamConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.s.Send(&speechpb.StreamingRecognizeRequest{
		Recognizer: g.recognizer,
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: streamingConfigPB(cfg),
		},
	})
	if err == nil {
		g.configured = true
	}
	return err
}

func (g *googleStream) SendAudio(frame []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.configured {
		return ErrConfigNotSent
	}
	return g.s.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: frame},
	})
}

func (g *googleStream) CloseSend() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.CloseSend()
}

func (g *googleStream) Recv() (*Response, error) {
	resp, err := g.s.Recv()
	if err != nil {
		return nil, err
	}
	return responseFromPB(resp), nil
}

func streamingConfigPB(cfg StreamConfig) *speechpb.StreamingRecognitionConfig {
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   cfg.SampleRateHertz,
					AudioChannelCount: cfg.AudioChannelCount,
				},
			},
			Model:         cfg.Model,
			LanguageCodes: []string{cfg.LanguageCode},
			Features: &speechpb.RecognitionFeatures{
				EnableWordTimeOffsets:      cfg.EnableWordTimeOffsets,
				EnableWordConfidence:       cfg.EnableWordConfidence,
				EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
			},
		},
		StreamingFeatures: &speechpb.StreamingRecognitionFeatures{
			InterimResults: cfg.InterimResults,
		},
	}
}

func responseFromPB(resp *speechpb.StreamingRecognizeResponse) *Response {
	out := &Response{Results: make([]Result, 0, len(resp.GetResults()))}
	for _, r := range resp.GetResults() {
		res := Result{IsFinal: r.GetIsFinal()}
		for _, alt := range r.GetAlternatives() {
			a := Alternative{
				Transcript: alt.GetTranscript(),
				Confidence: alt.GetConfidence(),
			}
			for _, wi := range alt.GetWords() {
				a.Words = append(a.Words, Word{
					Word:        wi.GetWord(),
					StartOffset: asDuration(wi.GetStartOffset()),
					EndOffset:   asDuration(wi.GetEndOffset()),
					Confidence:  wi.GetConfidence(),
				})
			}
			res.Alternatives = append(res.Alternatives, a)
		}
		out.Results = append(out.Results, res)
	}
	return out
}

func asDuration(d *durationpb.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return d.AsDuration()
}
