package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/models"
)

type noteRequest struct {
	Title  string `json:"title" binding:"required,max=200"`
	Body   string `json:"body" binding:"max=100000"`
	Canvas string `json:"canvas" binding:"omitempty,json,max=1000000"`
}

type updateNoteRequest struct {
	Title  *string `json:"title" binding:"omitempty,min=1,max=200"`
	Body   *string `json:"body" binding:"omitempty,max=100000"`
	Canvas *string `json:"canvas" binding:"omitempty,max=1000000"`
}

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.store.GetAllNotes(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.abort(c, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (s *Server) createNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	now := s.now().UTC()
	note := models.Note{
		ID:        uuid.New().String(),
		UserID:    currentUser(c).ID,
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		Canvas:    req.Canvas,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.AddNote(c.Request.Context(), note); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

func (s *Server) getNote(c *gin.Context) {
	note, err := s.store.GetNote(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (s *Server) updateNote(c *gin.Context) {
	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	note, err := s.store.GetNote(ctx, currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	if req.Title != nil {
		note.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		note.Body = *req.Body
	}
	if req.Canvas != nil {
		note.Canvas = *req.Canvas
	}
	note.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (s *Server) deleteNote(c *gin.Context) {
	if err := s.store.DeleteNote(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
