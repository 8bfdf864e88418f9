// Package admin exposes a read-only HTTP diagnostics surface over a
// running replica's Snapshot: role, term, commit/applied indices, a
// window of recent log entries, and the applied K/V state. It is
// strictly additive observability (spec.md's Domain Stack expansion)
// and never touches the client get/put protocol, which stays on the
// datagram transport exactly as spec.md §6 describes.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/raft"
)

// SnapshotSource is satisfied by *raft.Replica.
type SnapshotSource interface {
	Snapshot() raft.Snapshot
}

// NewServer builds the admin HTTP handler for a replica.
func NewServer(r SnapshotSource) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	engine.GET("/status", func(c *gin.Context) {
		s := r.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"id":          s.ID,
			"role":        s.Role,
			"term":        s.Term,
			"commitIndex": s.CommitIndex,
			"lastApplied": s.LastApplied,
			"leaderHint":  s.LeaderHint,
			"logLength":   s.LogLen,
		})
	})

	engine.GET("/log", func(c *gin.Context) {
		s := r.Snapshot()
		entries := make([]gin.H, len(s.RecentLog))
		for i, e := range s.RecentLog {
			entries[i] = gin.H{
				"term":         e.Term,
				"key":          e.Key,
				"value":        e.Value,
				"originClient": e.OriginClient,
				"requestId":    e.RequestID,
			}
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries, "length": s.LogLen})
	})

	engine.GET("/kv", func(c *gin.Context) {
		s := r.Snapshot()
		c.JSON(http.StatusOK, gin.H{"kv": s.KV})
	})

	return cors.AllowAll().Handler(engine)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("admin request")
	}
}
