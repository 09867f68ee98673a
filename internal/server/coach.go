package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
)

var errCoachDisabled = apperrors.NewUserError("AI coaching is not configured on this server.", llm.ErrNoAPIKey)

type chatRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

type planRequest struct {
	Goal string `json:"goal" binding:"required,max=500"`
	Days int    `json:"days" binding:"required,min=1,max=60"`
}

type reportRequest struct {
	Date string `json:"date" binding:"omitempty,day"`
}

func (s *Server) chatHistory(c *gin.Context) {
	messages, err := s.store.GetChatHistory(c.Request.Context(), currentUser(c).ID, s.cfg.Chat.Retention)
	if err != nil {
		s.abort(c, err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) chat(c *gin.Context) {
	if s.coach == nil {
		s.abort(c, errCoachDisabled)
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reply, err := s.coach.Chat(c.Request.Context(), currentUser(c).ID, req.Message)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) plan(c *gin.Context) {
	if s.coach == nil {
		s.abort(c, errCoachDisabled)
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	planned, err := s.coach.Plan(c.Request.Context(), currentUser(c).ID, req.Goal, req.Days)
	if err != nil {
		s.abort(c, err)
		return
	}
	forest, err := tasks.BuildTree(planned)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": toTaskNodes(forest, s.now())})
}

func (s *Server) getReport(c *gin.Context) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	r, err := s.reports.Get(c.Request.Context(), currentUser(c).ID, dayRef(s.day(q)))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

func (s *Server) bindReportDay(c *gin.Context) (string, bool) {
	var req reportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return "", false
		}
	}
	return s.day(dayQuery{Date: req.Date}), true
}

func (s *Server) generateReport(c *gin.Context) {
	if s.coach == nil {
		s.abort(c, errCoachDisabled)
		return
	}
	day, ok := s.bindReportDay(c)
	if !ok {
		return
	}
	r, err := s.reports.Generate(c.Request.Context(), currentUser(c).ID, dayRef(day))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

func (s *Server) shareReport(c *gin.Context) {
	day, ok := s.bindReportDay(c)
	if !ok {
		return
	}
	r, err := s.reports.Share(c.Request.Context(), currentUser(c).ID, dayRef(day))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shared": true, "weekStart": r.WeekStart})
}
