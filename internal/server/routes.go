package server

import (
	"github.com/julianstephens/studylit/internal/config"
)

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")

	public := api.Group("/auth")
	public.Use(s.rateLimitByIP(config.PolicyDefault))
	{
		public.POST("/signup", s.signup)
		public.POST("/login", s.login)
	}

	protected := api.Group("/")
	protected.Use(s.requireAuth(), s.rateLimit(config.PolicyDefault))
	{
		protected.GET("/me", s.me)

		protected.GET("/tasks", s.listTasks)
		protected.POST("/tasks", s.createTask)
		protected.GET("/tasks/:id", s.getTask)
		protected.PATCH("/tasks/:id", s.updateTask)
		protected.DELETE("/tasks/:id", s.deleteTask)
		protected.POST("/tasks/:id/subtasks", s.createSubtask)
		protected.POST("/tasks/:id/status", s.changeStatus)

		protected.GET("/credo", s.getCredoDay)
		protected.PUT("/credo/:date", s.replaceCredoDay)
		protected.GET("/credo/summary", s.credoSummary)

		protected.GET("/summary/week", s.weekSummary)

		protected.GET("/chat", s.chatHistory)
		protected.POST("/chat", s.rateLimit(config.PolicyChat), s.chat)
		protected.POST("/plan", s.rateLimit(config.PolicyPlan), s.plan)

		protected.GET("/reports/weekly", s.getReport)
		protected.POST("/reports/weekly", s.rateLimit(config.PolicyReport), s.generateReport)
		protected.POST("/reports/weekly/share", s.shareReport)

		protected.GET("/notes", s.listNotes)
		protected.POST("/notes", s.createNote)
		protected.GET("/notes/:id", s.getNote)
		protected.PATCH("/notes/:id", s.updateNote)
		protected.DELETE("/notes/:id", s.deleteNote)
	}
}
