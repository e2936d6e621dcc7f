package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/view"
)

// TaskItem is the JSON form of a task.
type TaskItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	DueDate   string `json:"dueDate"`
	Priority  string `json:"priority"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Text     string `json:"text"`
	DueDate  string `json:"dueDate"`
	Priority string `json:"priority"`
}

// EditTaskRequest is the body of PATCH /api/tasks/:id. Absent fields keep
// their current value.
type EditTaskRequest struct {
	Text     *string `json:"text"`
	DueDate  *string `json:"dueDate"`
	Priority *string `json:"priority"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status string `json:"status"`
	Tasks  int    `json:"tasks"`
	Synced bool   `json:"synced"`
}

func toTaskItem(t service.Task) TaskItem {
	item := TaskItem{
		ID:        t.ID,
		Text:      t.Text,
		DueDate:   t.DueDate,
		Priority:  string(t.Priority),
		Completed: t.Completed,
	}
	if !t.CreatedAt.IsZero() {
		item.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// statusFor maps a view or store error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrEmptyText), errors.Is(err, service.ErrInvalidPriority):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrNoTask):
		return http.StatusNotFound
	case errors.Is(err, view.ErrModalClosed):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(msg, zap.String("id", c.Param("id")), zap.Error(err))
		_ = c.Error(err)
	}
	c.JSON(status, errorBody(err.Error()))
}

func (s *Server) health(c *gin.Context) {
	body := Health{Status: "ok", Tasks: len(s.view.Tasks()), Synced: s.synced.Load()}
	if !body.Synced {
		body.Status = "down"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listTasks(c *gin.Context) {
	sort, err := view.ParseSortMode(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	priority, err := view.ParsePriorityFilter(c.Query("priority"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	criteria := view.Criteria{Search: c.Query("search"), Priority: priority, Sort: sort}
	tasks := view.Project(s.view.Tasks(), criteria, s.locale)

	items := make([]TaskItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, toTaskItem(t))
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.view.Find(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusOK, toTaskItem(task))
}

func (s *Server) createTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	id, err := s.view.Add(c.Request.Context(), view.AddForm{
		Text:     req.Text,
		DueDate:  req.DueDate,
		Priority: req.Priority,
	})
	if err != nil {
		s.fail(c, "failed to create task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) editTask(c *gin.Context) {
	var req EditTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	form, err := s.view.OpenEdit(c.Param("id"))
	if err != nil {
		s.fail(c, "failed to open task", err)
		return
	}
	defer s.view.CloseEdit()

	if req.Text != nil {
		form.Text = *req.Text
	}
	if req.DueDate != nil {
		form.DueDate = *req.DueDate
	}
	if req.Priority != nil {
		form.Priority = *req.Priority
	}

	if err := s.view.SubmitEdit(c.Request.Context(), form); err != nil {
		s.fail(c, "failed to update task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleTask(c *gin.Context) {
	if err := s.view.Toggle(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, "failed to toggle task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.view.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, "failed to delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}
