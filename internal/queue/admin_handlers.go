package queue

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

// Inspector is the subset of *asynq.Inspector used by AdminHandler.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunTask(queue, id string) error
}

// AdminHandler exposes queue management endpoints for archived (dead) tasks.
type AdminHandler struct {
	Inspector Inspector
	Queue     string
	PageSize  int
	Logger    zerolog.Logger
}

type archivedItem struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Payload      []byte    `json:"payload"`
	Retried      int       `json:"retried"`
	MaxRetry     int       `json:"maxRetry"`
	LastError    string    `json:"lastError,omitempty"`
	LastFailedAt time.Time `json:"lastFailedAt"`
}

type replayRequest struct {
	IDs []string `json:"ids"`
}

// ListDLQ returns archived tasks with pagination.
func (h *AdminHandler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "queue inspector unavailable", nil)
		return
	}
	queueName, ok := h.queueName(r)
	if !ok {
		common.WriteError(w, common.ValidationError("invalid queue name", nil))
		return
	}
	page, size := parsePage(r, h.pageSize())
	tasks, err := h.Inspector.ListArchivedTasks(queueName, asynq.PageSize(size), asynq.Page(page))
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		h.Logger.Error().Err(err).Str("queue", queueName).Msg("list archived tasks")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "could not list archived tasks", nil)
		return
	}
	items := make([]archivedItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, archivedItem{
			ID:           t.ID,
			Type:         t.Type,
			Payload:      t.Payload,
			Retried:      t.Retried,
			MaxRetry:     t.MaxRetry,
			LastError:    t.LastErr,
			LastFailedAt: t.LastFailedAt,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "queue": queueName, "page": page})
}

// ReplayDLQ moves archived tasks back to pending by id.
func (h *AdminHandler) ReplayDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "queue inspector unavailable", nil)
		return
	}
	queueName, ok := h.queueName(r)
	if !ok {
		common.WriteError(w, common.ValidationError("invalid queue name", nil))
		return
	}
	var req replayRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	ids := uniqueStrings(req.IDs)
	if len(ids) == 0 {
		common.WriteError(w, common.ValidationError("ids required", nil))
		return
	}
	replayed := make([]string, 0, len(ids))
	failed := make(map[string]string)
	for _, id := range ids {
		if err := h.Inspector.RunTask(queueName, id); err != nil {
			failed[id] = err.Error()
			continue
		}
		replayed = append(replayed, id)
	}
	h.updateArchivedMetric(queueName)
	resp := map[string]any{"replayed": replayed}
	if len(failed) > 0 {
		resp["failed"] = failed
	}
	common.JSON(w, http.StatusOK, resp)
}

// Stats returns task counts per state for the queue.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "queue inspector unavailable", nil)
		return
	}
	queueName, ok := h.queueName(r)
	if !ok {
		common.WriteError(w, common.ValidationError("invalid queue name", nil))
		return
	}
	info, err := h.Inspector.GetQueueInfo(queueName)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			common.WriteError(w, common.NotFoundError("Queue"))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "could not read queue info", nil)
		return
	}
	obs.DeadTasks.WithLabelValues(queueName).Set(float64(info.Archived))
	common.JSON(w, http.StatusOK, map[string]any{
		"queue":      info.Queue,
		"size":       info.Size,
		"pending":    info.Pending,
		"active":     info.Active,
		"scheduled":  info.Scheduled,
		"retry":      info.Retry,
		"archived":   info.Archived,
		"processed":  info.Processed,
		"failed":     info.Failed,
		"paused":     info.Paused,
		"latency_ms": info.Latency.Milliseconds(),
	})
}

func (h *AdminHandler) updateArchivedMetric(queueName string) {
	info, err := h.Inspector.GetQueueInfo(queueName)
	if err != nil {
		return
	}
	obs.DeadTasks.WithLabelValues(queueName).Set(float64(info.Archived))
}

func (h *AdminHandler) queueName(r *http.Request) (string, bool) {
	name := strings.TrimSpace(r.URL.Query().Get("queue"))
	if name == "" {
		name = h.Queue
	}
	if name == "" {
		name = DefaultQueue
	}
	name = sanitizeKind(name)
	return name, name != ""
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize <= 0 {
		return 50
	}
	return h.PageSize
}

func parsePage(r *http.Request, defaultSize int) (page, size int) {
	page = 1
	size = defaultSize
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			size = parsed
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
