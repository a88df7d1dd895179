package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// publicFeed upgrades the connection, registers it with the public hub
// (which sends a snapshot), and reads until the client goes away.
func (s *Server) publicFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("public feed upgrade failed", zap.Error(err))
		return
	}

	s.public.Register(conn, s.engine.BookSnapshot())

	go func() {
		defer s.public.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

const unauthorizedCloseCode = 4001

// privateFeed authenticates via the token query parameter before
// registering the session for the resolved user.
func (s *Server) privateFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("private feed upgrade failed", zap.Error(err))
		return
	}

	acct, ok := s.accounts.FindByToken(c.Query("token"))
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(unauthorizedCloseCode, "Unauthorized"))
		_ = conn.Close()
		return
	}

	userID := acct.UserID()
	s.private.Register(conn, userID)

	go func() {
		defer s.private.Unregister(conn, userID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
