package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

type dayQuery struct {
	Date string `form:"date" binding:"omitempty,day"`
}

type credoEntry struct {
	Item string `json:"item" binding:"required,credoitem"`
	Done bool   `json:"done"`
	Note string `json:"note" binding:"max=500"`
}

type replaceCredoRequest struct {
	Logs []credoEntry `json:"logs" binding:"max=11,dive"`
}

// day returns the requested date, or today in the configured timezone.
func (s *Server) day(q dayQuery) string {
	if q.Date != "" {
		return q.Date
	}
	return s.now().In(s.cfg.Location()).Format(constants.DateFormat)
}

// dayRef maps a day to the UTC instant used for week lookups.
func dayRef(day string) time.Time {
	t, _ := time.Parse(constants.DateFormat, day)
	return t
}

func (s *Server) getCredoDay(c *gin.Context) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	day := s.day(q)
	logs, err := s.store.GetCredoLogs(c.Request.Context(), currentUser(c).ID, day, day)
	if err != nil {
		s.abort(c, err)
		return
	}
	if logs == nil {
		logs = []models.CredoLog{}
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "items": models.CredoItems, "logs": logs})
}

func (s *Server) replaceCredoDay(c *gin.Context) {
	day := c.Param("date")
	if !utils.ValidDay(day) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date must be a date (YYYY-MM-DD)"})
		return
	}
	var req replaceCredoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	seen := make(map[string]bool, len(req.Logs))
	logs := make([]models.CredoLog, 0, len(req.Logs))
	for _, e := range req.Logs {
		if seen[e.Item] {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "credo item " + e.Item + " listed twice"})
			return
		}
		seen[e.Item] = true
		logs = append(logs, models.CredoLog{
			ID:   uuid.New().String(),
			Item: e.Item,
			Day:  day,
			Done: e.Done,
			Note: strings.TrimSpace(e.Note),
		})
	}

	user := currentUser(c)
	ctx := c.Request.Context()
	if err := s.store.ReplaceCredoDay(ctx, user.ID, day, logs, s.now()); err != nil {
		s.abort(c, err)
		return
	}
	stored, err := s.store.GetCredoLogs(ctx, user.ID, day, day)
	if err != nil {
		s.abort(c, err)
		return
	}
	if stored == nil {
		stored = []models.CredoLog{}
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "logs": stored})
}

func (s *Server) credoSummary(c *gin.Context) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	window := weekly.WeekWindow(dayRef(s.day(q)))
	logs, err := s.store.GetCredoLogs(c.Request.Context(), currentUser(c).ID, window.StartDay(), window.EndDay())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, weekly.SummarizeCredo(logs, window))
}

func (s *Server) weekSummary(c *gin.Context) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	week, err := s.reports.Week(c.Request.Context(), currentUser(c).ID, dayRef(s.day(q)))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekStart": week.Start, "weekEnd": week.End, "summary": week.Tasks})
}
