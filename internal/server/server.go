// Package server exposes the running client over a local HTTP control API.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"office-quiz/internal/client"
	"office-quiz/internal/web"

	"github.com/gin-gonic/gin"
)

// Backend is the client surface the control API drives.
type Backend interface {
	Status(ctx context.Context) (web.Status, error)
	QuizStatus(ctx context.Context, history int) (web.QuizStatus, error)
	ApplyInput(ctx context.Context, in client.Input) error
	SetName(ctx context.Context, name, texture string) error
	SendChat(ctx context.Context, content string) error
}

type Server struct {
	backend Backend
	hub     *Hub
	timeout time.Duration
}

func New(backend Backend, hub *Hub, timeout time.Duration) *Server {
	if hub == nil {
		hub = NewHub()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Server{backend: backend, hub: hub, timeout: timeout}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLog())

	router.GET("/", s.handleHome)
	api := router.Group("/api")
	api.GET("/state", s.handleState)
	api.GET("/quiz", s.handleQuiz)
	api.POST("/input", s.handleInput)
	api.POST("/name", s.handleName)
	api.POST("/chat", s.handleChat)
	router.GET("/ws/events", s.handleEvents)
	return router
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("http request method=%s path=%s status=%d duration=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.timeout)
}
