// Package songs holds the reference lyric tracks. The catalog is loaded once at
// startup and is read-only afterwards, so it is safe for concurrent use.
package songs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/yoockh/singalong/internal/models"
)

//go:embed songs.json
var embeddedSongs []byte

type Catalog struct {
	songs map[string]*models.ReferenceSong
	keys  []string
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := embeddedSongs
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read songs file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var list []models.ReferenceSong
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode songs: %w", err)
	}

	c := &Catalog{songs: make(map[string]*models.ReferenceSong, len(list))}
	for i := range list {
		s := list[i]
		if s.Key == "" {
			return nil, fmt.Errorf("song #%d: missing key", i)
		}
		if _, dup := c.songs[s.Key]; dup {
			return nil, fmt.Errorf("song %q: duplicate key", s.Key)
		}
		for j, w := range s.Words {
			if w.StartTime > w.EndTime {
				return nil, fmt.Errorf("song %q word #%d %q: start after end", s.Key, j, w.Word)
			}
			s.Words[j].Confidence = 0
		}
		if s.Language == "" {
			s.Language = "en-US"
		}
		c.songs[s.Key] = &s
		c.keys = append(c.keys, s.Key)
	}
	sort.Strings(c.keys)
	return c, nil
}

// Get returns a copy-safe pointer; callers must not modify the song.
func (c *Catalog) Get(key string) (*models.ReferenceSong, bool) {
	s, ok := c.songs[key]
	return s, ok
}

func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c *Catalog) List() []models.SongSummary {
	out := make([]models.SongSummary, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.songs[k].Summary())
	}
	return out
}
