// Package relay bridges a client websocket to a blocking, duplex speech
// recognition stream.
//
// Each Session runs three goroutines that talk only through two channels:
//
//	collector: transport -> inbound   (audio frames)
//	bridge:    inbound -> provider -> outbound (transcript segments)
//	sender:    outbound -> transport
//
// Closing a channel is the end-of-stream marker. Every producer closes its
// channel on every return path, otherwise the paired consumer would block
// forever.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/singalong/internal/metrics"
	"github.com/yoockh/singalong/internal/models"
	"github.com/yoockh/singalong/internal/providers/stt"
)

const defaultQueueSize = 32

// ErrClientGone is returned by Run when the client transport failed or closed
// before the session finished.
var ErrClientGone = errors.New("relay: client disconnected")

// Transport is the client side of a session; *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Options struct {
	Config     stt.StreamConfig
	Resolution models.TimingResolution
	Logger     *logrus.Entry
	QueueSize  int // capacity of each handoff channel
}

type Session struct {
	conn     Transport
	provider stt.StreamingProvider
	opts     Options
	log      *logrus.Entry

	inbound  chan []byte
	outbound chan models.TranscriptSegment
}

type controlMessage struct {
	Action string `json:"action"`
}

const actionStop = "stop"

func NewSession(conn Transport, provider stt.StreamingProvider, opts Options) *Session {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		conn:     conn,
		provider: provider,
		opts:     opts,
		log:      opts.Logger,
		inbound:  make(chan []byte, opts.QueueSize),
		outbound: make(chan models.TranscriptSegment, opts.QueueSize),
	}
}

// Run blocks until the collector, bridge and sender have all returned. The
// transport is always closed when Run returns. A provider fault is not an
// error: the client just stops receiving transcripts.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.RelaySessionsActive.Inc()
	defer metrics.RelaySessionsActive.Dec()

	s.log.WithField("language", s.opts.Config.LanguageCode).Info("transcription session started")
	defer s.log.Info("transcription session ended")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.collect(gctx) })
	g.Go(func() error { return s.bridge(gctx) })
	g.Go(func() error { return s.send(gctx, cancel) })
	return g.Wait()
}

// collect reads client frames until a stop message, a transport error or
// teardown. Binary frames are audio; text frames are JSON control messages.
func (s *Session) collect(ctx context.Context) error {
	defer close(s.inbound)

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("client closed connection")
			} else {
				s.log.WithError(err).Warn("client read failed")
			}
			return fmt.Errorf("%w: %v", ErrClientGone, err)
		}

		switch mt {
		case websocket.BinaryMessage:
			select {
			case s.inbound <- data:
			case <-ctx.Done():
				return nil
			}
		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.log.WithError(err).Debug("ignoring malformed control frame")
				continue
			}
			if msg.Action == actionStop {
				s.log.Info("stop requested by client")
				return nil
			}
		}
	}
}

// bridge owns the provider stream. It always closes outbound, so the sender
// finishes even when the provider fails.
func (s *Session) bridge(ctx context.Context) error {
	defer close(s.outbound)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.provider.StreamingRecognize(ctx)
	if err != nil {
		s.providerFault(err, "open stream")
		return nil
	}
	if err := stream.SendConfig(s.opts.Config); err != nil {
		s.providerFault(err, "send config")
		return nil
	}

	pumpErr := make(chan error, 1)
	go func() { pumpErr <- s.pump(ctx, stream) }()

	err = s.receive(ctx, stream)
	cancel()
	perr := <-pumpErr

	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		s.providerFault(err, "recv")
	case perr != nil && !errors.Is(perr, context.Canceled):
		s.log.WithError(perr).Warn("audio pump stopped early")
	}
	return nil
}

// pump forwards inbound frames to the provider in arrival order and half-closes
// the request side once inbound is closed.
func (s *Session) pump(ctx context.Context, stream stt.RecognitionStream) error {
	for {
		select {
		case frame, ok := <-s.inbound:
			if !ok {
				return stream.CloseSend()
			}
			if err := stream.SendAudio(frame); err != nil {
				return err
			}
			metrics.RelayAudioFramesTotal.Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// receive returns nil on a clean end of stream.
func (s *Session) receive(ctx context.Context, stream stt.RecognitionStream) error {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		for _, seg := range SegmentsFromResponse(resp, s.opts.Resolution) {
			select {
			case s.outbound <- seg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// send forwards segments as JSON text frames. On the end marker it sends a
// normal close frame. done is called before the transport is closed so the
// collector sees teardown rather than a read failure.
func (s *Session) send(ctx context.Context, done context.CancelFunc) error {
	defer func() {
		done()
		_ = s.conn.Close()
	}()

	for {
		select {
		case seg, ok := <-s.outbound:
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			b, err := json.Marshal(seg)
			if err != nil {
				return err
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.log.WithError(err).Warn("client write failed")
				return fmt.Errorf("%w: %v", ErrClientGone, err)
			}
			metrics.RelaySegmentsTotal.WithLabelValues(boolLabel(seg.IsFinal)).Inc()
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) providerFault(err error, stage string) {
	metrics.RelayProviderErrorsTotal.Inc()
	s.log.WithError(err).WithField("stage", stage).Error("recognition stream failed")
}

// SegmentsFromResponse converts every result that has at least one alternative
// into a segment built from its first alternative.
func SegmentsFromResponse(resp *stt.Response, res models.TimingResolution) []models.TranscriptSegment {
	if resp == nil {
		return nil
	}
	var out []models.TranscriptSegment
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]

		words := make([]models.WordTiming, 0, len(alt.Words))
		for _, w := range alt.Words {
			words = append(words, models.WordTiming{
				Word:       w.Word,
				StartTime:  res.Apply(w.StartOffset.Seconds()),
				EndTime:    res.Apply(w.EndOffset.Seconds()),
				Confidence: float64(w.Confidence),
			})
		}
		out = append(out, models.TranscriptSegment{
			Transcript: alt.Transcript,
			IsFinal:    r.IsFinal,
			Words:      words,
		})
	}
	return out
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
