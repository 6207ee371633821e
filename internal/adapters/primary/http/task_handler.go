package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/taskhive/taskhive-backend/internal/adapters/primary/http/middleware"
	"github.com/taskhive/taskhive-backend/internal/adapters/primary/validation"
	"github.com/taskhive/taskhive-backend/internal/auth"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

const maxTasksPerPage = 100

// TaskHandler handles HTTP requests for tasks
type TaskHandler struct {
	taskService    ports.TaskService
	commentHandler *CommentHandler
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(
	taskService ports.TaskService,
	commentHandler *CommentHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		commentHandler: commentHandler,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "task"),
	}
}

// Router sets up a new chi Router for all task-related routes.
func (h *TaskHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all task endpoints.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTasks)
	r.Post("/", h.HandleCreateTask)
	r.Get("/stats", h.HandleTaskStats)
	r.Post("/bulk-update", h.HandleBulkUpdate)

	// Routes for a specific task
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTask)
		r.Delete("/", h.HandleDeleteTask)
		r.Patch("/status", h.HandleUpdateTaskStatus)
		r.Patch("/assignee", h.HandleAssignTask)

		// Mount the comment routes nested under /tasks/{taskID}
		if h.commentHandler != nil {
			r.Mount("/comments", h.commentHandler.Router())
		}
	})
}

// --- Request/Response DTOs ---

// CreateTaskRequest defines the expected JSON body for creating a task
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	ProjectID   *string `json:"projectId"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
}

// Validate validates the create task request
func (r *CreateTaskRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)

	v.MaxLength("description", r.Description, domain.MaxDescriptionLength)

	if r.Priority != "" {
		v.OneOf("priority", r.Priority, domain.ValidPriorities())
	}

	if r.ProjectID != nil {
		v.UUID("projectId", *r.ProjectID)
	}
	if r.AssigneeID != nil {
		v.UUID("assigneeId", *r.AssigneeID)
	}
	if r.DueDate != nil {
		if _, err := time.Parse(time.RFC3339, *r.DueDate); err != nil {
			v.Custom("dueDate", false, "Must be an RFC3339 timestamp")
		}
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateTaskStatusRequest defines the expected JSON body for status updates
type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateTaskStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, domain.ValidStatuses())

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AssignTaskRequest defines the expected JSON body for assigning a task
type AssignTaskRequest struct {
	AssigneeID string `json:"assigneeId"`
}

// Validate validates the assign task request
func (r *AssignTaskRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("assigneeId", r.AssigneeID).
		UUID("assigneeId", r.AssigneeID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// BulkUpdateItemRequest is one task change inside a bulk update request.
type BulkUpdateItemRequest struct {
	ID          int64   `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
}

// BulkUpdateRequest defines the expected JSON body for bulk task updates
type BulkUpdateRequest struct {
	Tasks []BulkUpdateItemRequest `json:"tasks"`
}

const maxBulkUpdateItems = 100

// Validate validates the bulk update request
func (r *BulkUpdateRequest) Validate() error {
	v := validation.NewValidator()

	if len(r.Tasks) == 0 {
		v.Custom("tasks", false, "At least one task is required")
	}
	if len(r.Tasks) > maxBulkUpdateItems {
		v.Custom("tasks", false, "Too many tasks in one request")
	}

	for _, item := range r.Tasks {
		if item.ID <= 0 {
			v.Custom("tasks", false, "Each task needs a positive id")
		}
		if item.Status != nil {
			v.OneOf("status", *item.Status, domain.ValidStatuses())
		}
		if item.Priority != nil {
			v.OneOf("priority", *item.Priority, domain.ValidPriorities())
		}
		if item.AssigneeID != nil {
			v.UUID("assigneeId", *item.AssigneeID)
		}
		if item.DueDate != nil {
			if _, err := time.Parse(time.RFC3339, *item.DueDate); err != nil {
				v.Custom("dueDate", false, "Must be an RFC3339 timestamp")
			}
		}
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TaskStatsDTO defines the JSON response for the task stats endpoint.
type TaskStatsDTO struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// TaskDTO defines the JSON response for tasks.
type TaskDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	ProjectID   *string `json:"projectId"`
	AssigneeID  *string `json:"assigneeId"`
	CreatorID   string  `json:"creatorId"`
	DueDate     *string `json:"dueDate"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

func toTaskDTO(task *domain.Task) TaskDTO {
	var projectID *string
	if task.ProjectID != nil {
		value := task.ProjectID.String()
		projectID = &value
	}

	var assigneeID *string
	if task.AssigneeID != nil {
		value := task.AssigneeID.String()
		assigneeID = &value
	}

	var dueDate *string
	if task.DueDate != nil {
		value := task.DueDate.Format(time.RFC3339)
		dueDate = &value
	}

	var updatedAt *string
	if task.UpdatedAt != nil {
		value := task.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		ProjectID:   projectID,
		AssigneeID:  assigneeID,
		CreatorID:   task.CreatorID.String(),
		DueDate:     dueDate,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   updatedAt,
	}
}

func toTaskDTOs(tasks []*domain.Task) []TaskDTO {
	response := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, toTaskDTO(task))
	}
	return response
}

// --- Handlers ---

// HandleListTasks handles GET /tasks
func (h *TaskHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	// Parse pagination
	pagination := validation.ParsePagination(r, maxTasksPerPage)

	// Parse optional filters
	status := validation.ParseStringQueryParam(r, "status")
	priority := validation.ParseStringQueryParam(r, "priority")

	v := validation.NewValidator()

	var projectID *uuid.UUID
	if projectIDStr := r.URL.Query().Get("projectId"); projectIDStr != "" {
		parsed, err := uuid.Parse(projectIDStr)
		if err != nil {
			v.Custom("projectId", false, "Must be a valid UUID")
		} else {
			projectID = &parsed
		}
	}

	var assigneeID *uuid.UUID
	if assigneeIDStr := r.URL.Query().Get("assigneeId"); assigneeIDStr != "" {
		parsed, err := uuid.Parse(assigneeIDStr)
		if err != nil {
			v.Custom("assigneeId", false, "Must be a valid UUID")
		} else {
			assigneeID = &parsed
		}
	}

	dueFrom, err := validation.ParseTimeQueryParam(r, "dueFrom")
	if err != nil {
		v.Custom("dueFrom", false, "Must be a valid date or timestamp")
	}

	dueTo, err := validation.ParseTimeQueryParam(r, "dueTo")
	if err != nil {
		v.Custom("dueTo", false, "Must be a valid date or timestamp")
	}

	var dueFromTime *time.Time
	if dueFrom != nil {
		dueFromTime = &dueFrom.Time
	}

	var dueToTime *time.Time
	if dueTo != nil {
		adjusted := dueTo.Time
		if dueTo.DateOnly {
			adjusted = adjusted.Add(24 * time.Hour)
		}
		dueToTime = &adjusted
	}

	if dueFromTime != nil && dueToTime != nil && dueFromTime.After(*dueToTime) {
		v.Custom("dueFrom", false, "Must be before dueTo")
	}

	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	params := ports.ListTasksParams{
		ViewerID:   claims.UserID,
		Limit:      pagination.Limit + 1,
		Offset:     pagination.Offset,
		Status:     status,
		Priority:   priority,
		ProjectID:  projectID,
		AssigneeID: assigneeID,
		DueFrom:    dueFromTime,
		DueTo:      dueToTime,
	}

	tasks, err := h.taskService.ListTasks(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Use simple pagination (without total count for performance)
	WritePaginatedSimple(w, toTaskDTOs(tasks), pagination.Limit, pagination.Offset)
}

// HandleCreateTask handles POST /tasks
func (h *TaskHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTaskRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TaskPriority(req.Priority),
		CreatorID:   claims.UserID,
	}

	if req.ProjectID != nil {
		projectID := uuid.MustParse(*req.ProjectID)
		params.ProjectID = &projectID
	}
	if req.AssigneeID != nil {
		assigneeID := uuid.MustParse(*req.AssigneeID)
		params.AssigneeID = &assigneeID
	}
	if req.DueDate != nil {
		dueDate, _ := time.Parse(time.RFC3339, *req.DueDate)
		params.DueDate = &dueDate
	}

	task, err := h.taskService.CreateTask(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("task created",
		"task_id", task.ID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toTaskDTO(task))
}

// HandleGetTask handles GET /tasks/{taskID}
func (h *TaskHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	taskID, err := h.parseTaskID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTaskDTO(task))
}

// HandleDeleteTask handles DELETE /tasks/{taskID}
func (h *TaskHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	taskID, err := h.parseTaskID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), taskID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("task deleted",
		"task_id", taskID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}

// HandleUpdateTaskStatus handles PATCH /tasks/{taskID}/status
func (h *TaskHandler) HandleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	taskID, err := h.parseTaskID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTaskStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateTaskStatusParams{
		TaskID:  taskID,
		Status:  domain.TaskStatus(req.Status),
		ActorID: claims.UserID,
	}

	task, err := h.taskService.UpdateStatus(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("task status updated",
		"task_id", taskID,
		"new_status", req.Status,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toTaskDTO(task))
}

// HandleAssignTask handles PATCH /tasks/{taskID}/assignee
func (h *TaskHandler) HandleAssignTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	taskID, err := h.parseTaskID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AssignTaskRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		// This shouldn't happen since we validated the UUID format
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.AssignTaskParams{
		TaskID:     taskID,
		AssigneeID: assigneeID,
		ActorID:    claims.UserID,
	}

	task, err := h.taskService.AssignTask(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("task assigned",
		"task_id", taskID,
		"assignee_id", assigneeID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toTaskDTO(task))
}

// HandleBulkUpdate handles POST /tasks/bulk-update
func (h *TaskHandler) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[BulkUpdateRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	items := make([]ports.BulkUpdateItem, 0, len(req.Tasks))
	for _, item := range req.Tasks {
		update := ports.BulkUpdateItem{
			TaskID:      item.ID,
			Title:       item.Title,
			Description: item.Description,
		}
		if item.Status != nil {
			status := domain.TaskStatus(*item.Status)
			update.Status = &status
		}
		if item.Priority != nil {
			priority := domain.TaskPriority(*item.Priority)
			update.Priority = &priority
		}
		if item.AssigneeID != nil {
			assigneeID := uuid.MustParse(*item.AssigneeID)
			update.AssigneeID = &assigneeID
		}
		if item.DueDate != nil {
			dueDate, _ := time.Parse(time.RFC3339, *item.DueDate)
			update.DueDate = &dueDate
		}
		items = append(items, update)
	}

	tasks, err := h.taskService.BulkUpdate(r.Context(), ports.BulkUpdateParams{
		ActorID: claims.UserID,
		Items:   items,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("tasks bulk updated",
		"count", len(tasks),
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toTaskDTOs(tasks))
}

// HandleTaskStats handles GET /tasks/stats
func (h *TaskHandler) HandleTaskStats(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	stats, err := h.taskService.TaskStats(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, TaskStatsDTO{
		Total:      stats.Total,
		Todo:       stats.ByStatus[domain.StatusTodo],
		InProgress: stats.ByStatus[domain.StatusInProgress],
		Completed:  stats.ByStatus[domain.StatusCompleted],
	})
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *TaskHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseTaskID extracts and validates the task ID from the URL
func (h *TaskHandler) parseTaskID(r *http.Request) (int64, error) {
	taskIDStr := chi.URLParam(r, "taskID")
	taskID, err := strconv.ParseInt(taskIDStr, 10, 64)
	if err != nil || taskID <= 0 {
		v := validation.NewValidator()
		v.Custom("taskID", false, "Invalid task ID")
		return 0, v.Errors()
	}
	return taskID, nil
}
