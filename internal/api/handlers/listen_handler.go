package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/singalong/internal/models"
	"github.com/yoockh/singalong/internal/providers/stt"
	"github.com/yoockh/singalong/internal/relay"
	"github.com/yoockh/singalong/internal/utils"
)

const writeWait = 10 * time.Second

var languageCodeRe = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

type ListenOptions struct {
	DefaultLanguage string
	Model           string
	InterimResults  bool
	Resolution      models.TimingResolution
}

type ListenHandler struct {
	provider stt.StreamingProvider
	opts     ListenOptions
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewListenHandler(provider stt.StreamingProvider, opts ListenOptions, log *logrus.Logger) *ListenHandler {
	return &ListenHandler{
		provider: provider,
		opts:     opts,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true }, // TODO: restrict origin once the web client has a fixed host
		},
	}
}

// wsConn serializes writes and bounds each one with a deadline.
type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) ReadMessage() (int, []byte, error) { return w.c.ReadMessage() }

func (w *wsConn) WriteMessage(mt int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(mt, b)
}

func (w *wsConn) Close() error { return w.c.Close() }

// Listen upgrades to a websocket and relays audio to the recognizer until the
// client stops, disconnects or the provider stream ends.
func (h *ListenHandler) Listen(c *gin.Context) {
	const op = "ListenHandler.Listen"

	lang := c.DefaultQuery("language_code", h.opts.DefaultLanguage)
	if !languageCodeRe.MatchString(lang) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid language_code", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		return
	}

	cfg := stt.DefaultStreamConfig(lang, h.opts.Model)
	cfg.InterimResults = h.opts.InterimResults

	sessionID := uuid.NewString()
	log := h.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"request_id": c.GetString("request_id"),
	})

	sess := relay.NewSession(&wsConn{c: conn}, h.provider, relay.Options{
		Config:     cfg,
		Resolution: h.opts.Resolution,
		Logger:     log,
	})

	err = sess.Run(c.Request.Context())
	switch {
	case err == nil:
	case errors.Is(err, relay.ErrClientGone):
		log.WithError(err).Debug("session ended by client")
	default:
		log.WithError(err).Error("session failed")
	}
}
