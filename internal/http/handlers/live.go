package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	liveBuffer     = 64
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// Live streams queue, surge and alert events over a websocket. An optional
// site query parameter filters site-scoped events.
func (h *Handler) Live(c *gin.Context) {
	site := c.Query("site")
	if site != "" {
		s, err := h.Queue.Site(site)
		if err != nil {
			h.fail(c, err)
			return
		}
		site = s.ID
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch, unsubscribe := h.Hub.Subscribe(liveBuffer)
	defer unsubscribe()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(gin.H{"type": "hello", "surge": h.Queue.SurgeActive()}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				return
			}
			if site != "" && e.SiteID != "" && e.SiteID != site {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				h.Logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}
