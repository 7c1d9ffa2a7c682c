package simulator

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Admin exposes an HTTP control surface over a running simulator, used to
// drive scripted scenarios from the shell while a client under test stays
// connected.
type Admin struct {
	Router *gin.Engine
	sim    *Server
}

func NewAdmin(sim *Server) *Admin {
	r := gin.New()
	r.Use(gin.Recovery())

	a := &Admin{Router: r, sim: sim}
	a.routes()
	return a
}

func (a *Admin) routes() {
	a.Router.GET("/health", a.health)
	a.Router.GET("/sessions", a.listSessions)

	sessions := a.Router.Group("/sessions/:id")
	{
		sessions.POST("/message", a.sendMessage)
		sessions.POST("/error", a.sendError)
		sessions.POST("/shutdown", a.sendShutdown)
		sessions.POST("/drop", a.dropSession)
	}
}

func (a *Admin) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(a.sim.Sessions())})
}

func (a *Admin) listSessions(c *gin.Context) {
	type sessionInfo struct {
		ID       string `json:"id"`
		ClientID int    `json:"client_id"`
	}
	out := []sessionInfo{}
	for _, s := range a.sim.Sessions() {
		out = append(out, sessionInfo{ID: s.ID, ClientID: s.ClientID})
	}
	c.JSON(http.StatusOK, out)
}

func (a *Admin) session(c *gin.Context) *Session {
	id := c.Param("id")
	for _, s := range a.sim.Sessions() {
		if s.ID == id {
			return s
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
	return nil
}

func (a *Admin) sendMessage(c *gin.Context) {
	s := a.session(c)
	if s == nil {
		return
	}
	var req struct {
		Fields []string `json:"fields" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Send(req.Fields...); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (a *Admin) sendError(c *gin.Context) {
	s := a.session(c)
	if s == nil {
		return
	}
	var req struct {
		RequestID int    `json:"request_id"`
		Code      int    `json:"code" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.SendError(req.RequestID, req.Code, req.Message); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (a *Admin) sendShutdown(c *gin.Context) {
	s := a.session(c)
	if s == nil {
		return
	}
	if err := s.SendShutdown(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (a *Admin) dropSession(c *gin.Context) {
	s := a.session(c)
	if s == nil {
		return
	}
	s.Close()
	c.JSON(http.StatusOK, gin.H{"status": "dropped"})
}

// Start serves the admin API. Blocks.
func (a *Admin) Start(addr string) error {
	return a.Router.Run(addr)
}
