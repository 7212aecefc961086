package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/singalong/internal/api/handlers"
	"github.com/yoockh/singalong/internal/api/middleware"
	"github.com/yoockh/singalong/internal/leaderboard"
	"github.com/yoockh/singalong/internal/models"
	"github.com/yoockh/singalong/internal/providers/stt"
	"github.com/yoockh/singalong/internal/scoring"
	"github.com/yoockh/singalong/internal/songs"
	"github.com/yoockh/singalong/internal/storage"
	"github.com/yoockh/singalong/internal/tokens"
)

const adminSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

// echoStream answers with a single final segment describing the audio it got.
type echoStream struct {
	ctx context.Context

	mu       sync.Mutex
	language string
	received int
	answered bool

	halfClose chan struct{}
}

func (s *echoStream) SendConfig(cfg stt.StreamConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = cfg.LanguageCode
	return nil
}

func (s *echoStream) SendAudio(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received += len(b)
	return nil
}

func (s *echoStream) CloseSend() error {
	close(s.halfClose)
	return nil
}

func (s *echoStream) Recv() (*stt.Response, error) {
	select {
	case <-s.halfClose:
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answered {
		return nil, io.EOF
	}
	s.answered = true
	return &stt.Response{Results: []stt.Result{{
		IsFinal: true,
		Alternatives: []stt.Alternative{{
			Transcript: fmt.Sprintf("%s %d", s.language, s.received),
			Words:      []stt.Word{{Word: "la", StartOffset: 1500 * time.Millisecond, EndOffset: 2 * time.Second, Confidence: 0.75}},
		}},
	}}}, nil
}

type echoProvider struct{}

func (echoProvider) StreamingRecognize(ctx context.Context) (stt.RecognitionStream, error) {
	return &echoStream{ctx: ctx, halfClose: make(chan struct{})}, nil
}

func (echoProvider) Close() error { return nil }

type testEnv struct {
	router  *gin.Engine
	catalog *songs.Catalog
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	catalog, err := songs.Load("")
	require.NoError(t, err)

	store := tokens.NewMemoryStore(time.Minute, 100)
	board := leaderboard.New(storage.NewLocalStore(t.TempDir()), "", log)

	r := NewRouter(Deps{
		Listen: handlers.NewListenHandler(echoProvider{}, handlers.ListenOptions{
			DefaultLanguage: "en-US",
			Model:           "chirp_2",
			InterimResults:  true,
			Resolution:      models.ResolutionFractional,
		}, log),
		Song:      handlers.NewSongHandler(catalog),
		Score:     handlers.NewScoreHandler(catalog, scoring.New(models.ResolutionFractional), store, log),
		HighScore: handlers.NewHighScoreHandler(board, store, log),
		Logger:    log,
		Admin:     middleware.JWTOptions{Secret: secret},
	})
	return &testEnv{router: r, catalog: catalog}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          "operator-1",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"app_metadata": map[string]any{"role": role},
	})
	s, err := tok.SignedString([]byte(adminSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	w := env.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestSongs(t *testing.T) {
	env := newTestEnv(t, adminSecret)

	w := env.do(t, http.MethodGet, "/api/songs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.SongSummary](t, w)
	assert.Len(t, list, len(env.catalog.Keys()))

	w = env.do(t, http.MethodGet, "/api/song/twinkle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "confidence")
	detail := decode[models.SongDetail](t, w)
	assert.Equal(t, "twinkle", detail.Key)
	assert.NotEmpty(t, detail.Words)

	w = env.do(t, http.MethodGet, "/api/song/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[map[string]string](t, w)["code"])
}

func TestNewPhrase(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	w := env.do(t, http.MethodGet, "/api/new-phrase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, songs.Phrases(), decode[map[string]string](t, w)["phrase"])
}

type scoreResp struct {
	models.ScoreBreakdown
	ScoreID string `json:"score_id"`
}

func (e *testEnv) perfectScore(t *testing.T) scoreResp {
	t.Helper()
	song, ok := e.catalog.Get("twinkle")
	require.True(t, ok)

	words := make([]models.WordTiming, len(song.Words))
	copy(words, song.Words)
	for i := range words {
		words[i].Confidence = 1
	}

	w := e.do(t, http.MethodPost, "/api/score", gin.H{"song_key": "twinkle", "words": words})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[scoreResp](t, w)
}

func TestScore(t *testing.T) {
	env := newTestEnv(t, adminSecret)

	res := env.perfectScore(t)
	assert.Equal(t, models.ScoreBreakdown{OverallScore: 100, AccuracyScore: 100, ConfidenceScore: 100, TimingScore: 100}, res.ScoreBreakdown)
	assert.NotEmpty(t, res.ScoreID)

	w := env.do(t, http.MethodPost, "/api/score", gin.H{"song_key": "twinkle", "words": []any{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[scoreResp](t, w).OverallScore)

	w = env.do(t, http.MethodPost, "/api/score", gin.H{"song_key": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/score", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/score", gin.H{"words": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScore_RejectsInvalidWords(t *testing.T) {
	env := newTestEnv(t, adminSecret)

	bodies := map[string]any{
		"start after end":     []gin.H{{"word": "twinkle", "startTime": 5, "endTime": 1, "confidence": 0.5}},
		"confidence > 1":      []gin.H{{"word": "twinkle", "startTime": 0, "endTime": 1, "confidence": 50}},
		"negative start":      []gin.H{{"word": "twinkle", "startTime": -2, "endTime": 1, "confidence": 0.5}},
		"negative confidence": []gin.H{{"word": "twinkle", "startTime": 0, "endTime": 1, "confidence": -1}},
	}
	for name, words := range bodies {
		w := env.do(t, http.MethodPost, "/api/score", gin.H{"song_key": "twinkle", "words": words})
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Equal(t, "INVALID_ARGUMENT", decode[map[string]string](t, w)["code"], name)
	}
}

func TestHighScores_RedeemOnce(t *testing.T) {
	env := newTestEnv(t, adminSecret)

	w := env.do(t, http.MethodGet, "/api/high-scores", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	res := env.perfectScore(t)

	w = env.do(t, http.MethodPost, "/api/high-scores", gin.H{"name": "  ana  ", "score_id": res.ScoreID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"ok","accepted":true}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/high-scores", gin.H{"name": "ana", "score_id": res.ScoreID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/high-scores", nil)
	board := decode[[]models.HighScoreEntry](t, w)
	assert.Equal(t, []models.HighScoreEntry{{Name: "ana", Score: 100}}, board)
}

func TestHighScores_BadNameKeepsToken(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	res := env.perfectScore(t)

	for _, name := range []string{"   ", strings.Repeat("x", 33)} {
		w := env.do(t, http.MethodPost, "/api/high-scores", gin.H{"name": name, "score_id": res.ScoreID})
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w := env.do(t, http.MethodPost, "/api/high-scores", gin.H{"name": "bo", "score_id": res.ScoreID})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/high-scores", gin.H{"name": "bo", "score_id": "made-up"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHighScores_AdminReset(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	res := env.perfectScore(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/high-scores", gin.H{"name": "cy", "score_id": res.ScoreID}).Code)

	w := env.do(t, http.MethodDelete, "/api/high-scores", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodDelete, "/api/high-scores", nil, "Authorization", adminToken(t, "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/high-scores", nil, "Authorization", adminToken(t, "admin"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/high-scores", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHighScores_AdminDisabled(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodDelete, "/api/high-scores", nil, "Authorization", adminToken(t, "admin"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	env.perfectScore(t)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "singalong_scores_issued_total")
	assert.Contains(t, w.Body.String(), `singalong_http_requests_total{method="POST",path_pattern="/api/score"`)
}

func TestListen_WebSocketRelay(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/listen?language_code=pt-BR"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("abcd")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("ef")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"stop"}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)

	var seg models.TranscriptSegment
	require.NoError(t, json.Unmarshal(data, &seg))
	assert.Equal(t, "pt-BR 6", seg.Transcript)
	assert.True(t, seg.IsFinal)
	require.Len(t, seg.Words, 1)
	assert.Equal(t, models.WordTiming{Word: "la", StartTime: 1.5, EndTime: 2, Confidence: 0.75}, seg.Words[0])

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestListen_RejectsBadLanguage(t *testing.T) {
	env := newTestEnv(t, adminSecret)
	w := env.do(t, http.MethodGet, "/listen?language_code=en_US!", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
