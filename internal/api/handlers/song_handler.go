package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/singalong/internal/songs"
	"github.com/yoockh/singalong/internal/utils"
)

type SongHandler struct {
	catalog *songs.Catalog
}

func NewSongHandler(catalog *songs.Catalog) *SongHandler {
	return &SongHandler{catalog: catalog}
}

func (h *SongHandler) Get(c *gin.Context) {
	song, ok := h.catalog.Get(c.Param("key"))
	if !ok {
		writeError(c, utils.E(utils.CodeNotFound, "SongHandler.Get", "song not found", nil))
		return
	}
	c.JSON(http.StatusOK, song.Detail())
}

func (h *SongHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.List())
}

func (h *SongHandler) NewPhrase(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"phrase": songs.RandomPhrase()})
}
