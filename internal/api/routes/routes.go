package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/singalong/internal/api/handlers"
	"github.com/yoockh/singalong/internal/api/middleware"
	"github.com/yoockh/singalong/internal/metrics"
)

type Deps struct {
	Listen    *handlers.ListenHandler
	Song      *handlers.SongHandler
	Score     *handlers.ScoreHandler
	HighScore *handlers.HighScoreHandler

	Logger *logrus.Logger
	Admin  middleware.JWTOptions
}

// NewRouter builds the engine with recovery, access logging and metrics
// middleware and registers every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), metrics.Instrument())
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket
	r.GET("/listen", d.Listen.Listen)

	api := r.Group("/api")
	api.GET("/songs", d.Song.List)
	api.GET("/song/:key", d.Song.Get)
	api.GET("/new-phrase", d.Song.NewPhrase)

	api.POST("/score", d.Score.Score)

	api.GET("/high-scores", d.HighScore.List)
	api.POST("/high-scores", d.HighScore.Submit)

	// Operator routes (JWT)
	admin := api.Group("/")
	admin.Use(middleware.JWTAuth(d.Admin), middleware.RequireAdmin())
	admin.DELETE("/high-scores", d.HighScore.Reset)
}
