package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieshelf/movieshelf/internal/scheduler"
)

func newTestScheduler(t *testing.T) (*echo.Echo, chan struct{}) {
	t.Helper()

	sched, err := scheduler.New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop() })

	ran := make(chan struct{}, 1)
	require.NoError(t, sched.RegisterTask(scheduler.TaskConfig{
		ID:      "noop",
		Name:    "No-op",
		Cron:    "0 0 1 1 *",
		Timeout: time.Second,
		Func: func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}))

	e := echo.New()
	NewSchedulerHandler(sched).RegisterRoutes(e.Group("/api/v1/scheduler"))
	return e, ran
}

func TestSchedulerHandler_ListTasks(t *testing.T) {
	e, _ := newTestScheduler(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []scheduler.TaskInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "noop", tasks[0].ID)
}

func TestSchedulerHandler_GetTaskNotFound(t *testing.T) {
	e, _ := newTestScheduler(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/tasks/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulerHandler_RunTask(t *testing.T) {
	e, ran := newTestScheduler(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/tasks/noop/run", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}
