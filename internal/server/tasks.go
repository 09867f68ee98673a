package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

type rangeQuery struct {
	From string `form:"from" binding:"omitempty,day"`
	To   string `form:"to" binding:"omitempty,day"`
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Due         string `json:"due"`
	Source      string `json:"source" binding:"omitempty,oneof=manual quick_add ai_plan"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	// Due re-dates the task; an empty string clears it.
	Due *string `json:"due"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=todo in_progress paused done"`
}

// taskRange resolves from/to days to [from, until). to is inclusive; both
// default to the current week.
func (s *Server) taskRange(q rangeQuery) (time.Time, time.Time, error) {
	week := weekly.WeekWindow(dayRef(s.day(dayQuery{})))
	from, until := week.Start, week.Until()
	if q.From != "" {
		from, _ = time.Parse(constants.DateFormat, q.From)
	}
	if q.To != "" {
		to, _ := time.Parse(constants.DateFormat, q.To)
		until = to.AddDate(0, 0, 1)
	}
	if !from.Before(until) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must not be after to")
	}
	return from, until, nil
}

func (s *Server) listTasks(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	from, until, err := s.taskRange(q)
	if err != nil {
		badRequest(c, err)
		return
	}
	user := currentUser(c)
	list, err := s.store.GetTasksInRange(c.Request.Context(), user.ID, from, until)
	if err != nil {
		s.abort(c, err)
		return
	}
	forest, err := tasks.BuildTree(list)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": toTaskNodes(forest, s.now())})
}

func (s *Server) parseDue(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	due, err := utils.ParseDue(raw)
	if err != nil {
		return nil, err
	}
	return &due, nil
}

func (s *Server) newTask(c *gin.Context, parent *models.Task) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	due, err := s.parseDue(req.Due)
	if err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(c, fmt.Errorf("title cannot be blank"))
		return
	}

	user := currentUser(c)
	var task models.Task
	if parent != nil {
		task = tasks.NewSubtask(*parent, req.Title, s.now())
	} else {
		task = tasks.New(user.ID, req.Title, s.now())
	}
	task.Description = strings.TrimSpace(req.Description)
	task.Due = due
	if req.Source != "" {
		task.Source = models.TaskSource(req.Source)
	}

	if err := s.store.AddTask(c.Request.Context(), task); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": toTaskJSON(task, s.now())})
}

func (s *Server) createTask(c *gin.Context) {
	s.newTask(c, nil)
}

func (s *Server) createSubtask(c *gin.Context) {
	parent, err := s.store.GetTask(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	s.newTask(c, &parent)
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.store.GetTask(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": toTaskJSON(task, s.now())})
}

func (s *Server) updateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	task, err := s.store.GetTask(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			badRequest(c, fmt.Errorf("title cannot be blank"))
			return
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Due != nil {
		due, err := s.parseDue(*req.Due)
		if err != nil {
			badRequest(c, err)
			return
		}
		task.Due = due
	}
	task.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": toTaskJSON(task, s.now())})
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.store.DeleteTask(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) changeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	now := s.now()
	change, err := s.store.ChangeTaskStatus(c.Request.Context(), currentUser(c).ID, c.Param("id"), models.TaskStatus(req.Status), now)
	if err != nil {
		s.abort(c, err)
		return
	}
	body := gin.H{"task": toTaskJSON(change.Task, now)}
	if change.Parent != nil {
		body["parent"] = toTaskJSON(*change.Parent, now)
	}
	c.JSON(http.StatusOK, body)
}
