// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rotation

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// idleWaiter is satisfied by stages whose moves start without blocking.
type idleWaiter interface {
	WaitIdle(ctx context.Context) error
}

// Stage is the stage surface rotationd serves. *NSCA1 implements it.
type Stage interface {
	Angle() (float64, error)
	MoveTo(deg float64) error
	CW(deg float64) error
	CCW(deg float64) error
	Velocity() (float64, error)
	SetVelocity(degPerSec float64) error
	Moving() (bool, error)
	Stop() error
}

// Server exposes a Stage over HTTP for the rest of the lab network.
// Move handlers block until the stage settles, so a 200 means the stage
// is at the requested position.
type Server struct {
	stage Stage
	log   *logrus.Entry
}

// NewServer wraps a stage in an HTTP handler set.
func NewServer(stage Stage) *Server {
	return &Server{
		stage: stage,
		log:   logrus.WithField("component", "rotationd"),
	}
}

// Router builds the gin engine with the /rot routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	rot := r.Group("/rot")
	rot.GET("/angle", s.handleAngle)
	rot.GET("/angle/:deg", s.handleMoveTo)
	rot.GET("/cw/:deg", s.handleCW)
	rot.GET("/ccw/:deg", s.handleCCW)
	rot.GET("/velocity", s.handleVelocity)
	rot.GET("/velocity/:deg", s.handleSetVelocity)
	rot.GET("/stop", s.handleStop)
	return r
}

func (s *Server) handleAngle(c *gin.Context) {
	angle, err := s.stage.Angle()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"angle": angle})
}

func (s *Server) handleMoveTo(c *gin.Context) {
	deg, ok := s.degParam(c)
	if !ok {
		return
	}
	s.move(c, func() error { return s.stage.MoveTo(deg) })
}

func (s *Server) handleCW(c *gin.Context) {
	deg, ok := s.degParam(c)
	if !ok {
		return
	}
	s.move(c, func() error { return s.stage.CW(deg) })
}

func (s *Server) handleCCW(c *gin.Context) {
	deg, ok := s.degParam(c)
	if !ok {
		return
	}
	s.move(c, func() error { return s.stage.CCW(deg) })
}

func (s *Server) handleVelocity(c *gin.Context) {
	v, err := s.stage.Velocity()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"velocity": v})
}

func (s *Server) handleSetVelocity(c *gin.Context) {
	deg, ok := s.degParam(c)
	if !ok {
		return
	}
	if err := s.stage.SetVelocity(deg); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"velocity": deg})
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.stage.Stop(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

// move runs a stage move and then polls it to settle before answering,
// preserving the blocking contract clients rely on.
func (s *Server) move(c *gin.Context, start func() error) {
	if err := start(); err != nil {
		s.fail(c, err)
		return
	}
	if w, ok := s.stage.(idleWaiter); ok {
		if err := w.WaitIdle(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
	}
	angle, err := s.stage.Angle()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"angle": angle})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.WithError(err).Error("stage request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) degParam(c *gin.Context) (float64, bool) {
	deg, err := strconv.ParseFloat(c.Param("deg"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad angle: " + c.Param("deg")})
		return 0, false
	}
	return deg, true
}
