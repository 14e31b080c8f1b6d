package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"office-quiz/internal/client"
	"office-quiz/internal/loop"
	"office-quiz/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

type inputRequest struct {
	Left         *bool  `json:"left"`
	Right        *bool  `json:"right"`
	Up           *bool  `json:"up"`
	Down         *bool  `json:"down"`
	Press        string `json:"press" binding:"omitempty,oneof=interact quiz open"`
	StationKind  string `json:"station_kind" binding:"omitempty,oneof=chair terminal computer whiteboard"`
	StationID    string `json:"station_id" binding:"required_with=StationKind"`
	ClearStation bool   `json:"clear_station"`
}

type nameRequest struct {
	Name    string `json:"name" binding:"required,name"`
	Texture string `json:"texture" binding:"omitempty,oneof=adam ash lucy nancy"`
}

type chatRequest struct {
	Content string `json:"content" binding:"required,chat"`
}

type quizQuery struct {
	History int `form:"history" binding:"omitempty,min=0,max=100"`
}

var inputMessages = bindMessages{
	"Press":       {"oneof": "press must be interact, quiz or open"},
	"StationKind": {"oneof": "unknown station kind"},
	"StationID":   {"required_with": "station_id is required with station_kind"},
}

var nameMessages = bindMessages{
	"Name": {
		"required": "name is required",
		"name":     "name must be 1-20 printable characters",
	},
	"Texture": {"oneof": "unknown texture"},
}

var chatMessages = bindMessages{
	"Content": {
		"required": "message is required",
		"chat":     "message must be 1-200 printable characters",
	},
}

func (s *Server) handleHome(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	status, err := s.backend.Status(ctx)
	if err != nil {
		log.Printf("home status failed error=%v", err)
		status = web.Status{}
	}
	templ.Handler(web.StatusPage(status)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleState(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	status, err := s.backend.Status(ctx)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleQuiz(c *gin.Context) {
	var query quizQuery
	if !bindQuery(c, &query) {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	status, err := s.backend.QuizStatus(ctx, query.History)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleInput(c *gin.Context) {
	var req inputRequest
	if !bindJSON(c, &req, inputMessages, "invalid input") {
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	err := s.backend.ApplyInput(ctx, client.Input{
		Left:         req.Left,
		Right:        req.Right,
		Up:           req.Up,
		Down:         req.Down,
		Press:        req.Press,
		StationKind:  req.StationKind,
		StationID:    req.StationID,
		ClearStation: req.ClearStation,
	})
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleName(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req, nameMessages, "invalid name") {
		return
	}
	name, _ := validateName(req.Name)
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := s.backend.SetName(ctx, name, req.Texture); err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req, chatMessages, "invalid message") {
		return
	}
	content, _ := validateChat(req.Content)
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := s.backend.SendChat(ctx, content); err != nil {
		writeBackendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeBackendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, client.ErrUnknownStation):
		status = http.StatusNotFound
	case errors.Is(err, client.ErrInvalidInput), errors.Is(err, client.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, client.ErrDisconnected), errors.Is(err, loop.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		log.Printf("control request failed path=%s error=%v", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
