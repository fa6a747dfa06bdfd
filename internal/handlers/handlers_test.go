package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/database"
	"github.com/yukikurage/task-board/internal/dto"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/store"
	"github.com/yukikurage/task-board/internal/workspace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the router end to end over an in-memory database.
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	registry *workspace.Registry
	router   *gin.Engine
	cookies  []*http.Cookie
}

// SetupTest runs before each test
func (suite *HandlersTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), database.NewGormConfig("error"))
	suite.Require().NoError(err)
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	suite.Require().NoError(database.Migrate(suite.db))

	suite.registry = workspace.NewRegistry(store.NewGormStore(suite.db), workspace.Options{
		Session: controllers.SessionOptions{
			AdminUsername: "admin",
			AdminPassword: "admin",
			HashCost:      bcrypt.MinCost,
		},
	})

	gin.SetMode(gin.TestMode)
	suite.router = NewRouter(suite.registry, cookie.NewStore([]byte("secret")))
	suite.cookies = nil
}

// TearDownTest runs after each test
func (suite *HandlersTestSuite) TearDownTest() {
	suite.registry.Close()
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// request sends a JSON request carrying the cookies of earlier responses
func (suite *HandlersTestSuite) request(method, url string, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		suite.Require().NoError(json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range suite.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	if fresh := w.Result().Cookies(); len(fresh) > 0 {
		suite.cookies = fresh
	}
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (suite *HandlersTestSuite) register(username string) {
	w := suite.request(http.MethodPost, "/api/auth/register", dto.CredentialsRequest{
		Username: username,
		Password: "supersecret",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)
}

func (suite *HandlersTestSuite) board() dto.BoardDTO {
	w := suite.request(http.MethodGet, "/api/board", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var b dto.BoardDTO
	suite.decode(w, &b)
	return b
}

// waitForBoard polls the board until cond holds
func (suite *HandlersTestSuite) waitForBoard(cond func(dto.BoardDTO) bool) dto.BoardDTO {
	var b dto.BoardDTO
	suite.Require().Eventually(func() bool {
		b = suite.board()
		return cond(b)
	}, 2*time.Second, 10*time.Millisecond)
	return b
}

func (suite *HandlersTestSuite) createTask(title string) dto.TaskDTO {
	w := suite.request(http.MethodPost, "/api/tasks", dto.CreateTaskRequest{Title: title})
	suite.Require().Equal(http.StatusAccepted, w.Code)

	var created dto.TaskDTO
	suite.waitForBoard(func(b dto.BoardDTO) bool {
		for _, t := range b.Pending {
			if t.Title == title {
				created = t
				return true
			}
		}
		return false
	})
	return created
}

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestRegister_Success() {
	w := suite.request(http.MethodPost, "/api/auth/register", dto.CredentialsRequest{
		Username: "newuser",
		Password: "supersecret",
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var session dto.SessionDTO
	suite.decode(w, &session)
	assert.Equal(suite.T(), "logged_in", session.Phase)
	suite.Require().NotNil(session.User)
	assert.Equal(suite.T(), "newuser", session.User.Username)

	w = suite.request(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	suite.decode(w, &session)
	assert.Equal(suite.T(), "logged_in", session.Phase)
}

func (suite *HandlersTestSuite) TestRegister_Duplicate() {
	suite.register("taken")
	suite.request(http.MethodPost, "/api/auth/logout", nil)

	w := suite.request(http.MethodPost, "/api/auth/register", dto.CredentialsRequest{
		Username: "taken",
		Password: "another",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestLogin_AdminBootstrapAndWrongPassword() {
	w := suite.request(http.MethodPost, "/api/auth/login", dto.CredentialsRequest{Username: "admin", Password: "admin"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	suite.request(http.MethodPost, "/api/auth/logout", nil)

	w = suite.request(http.MethodPost, "/api/auth/login", dto.CredentialsRequest{Username: "admin", Password: "nope"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	var apiErr apierrors.APIError
	suite.decode(w, &apiErr)
	assert.Equal(suite.T(), apierrors.ErrCodeAuth, apiErr.Code)
}

func (suite *HandlersTestSuite) TestLogin_BlankUsername() {
	w := suite.request(http.MethodPost, "/api/auth/login", dto.CredentialsRequest{Username: "", Password: "x"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var apiErr apierrors.APIError
	suite.decode(w, &apiErr)
	assert.Equal(suite.T(), apierrors.ErrCodeValidation, apiErr.Code)
	assert.Equal(suite.T(), "username", apiErr.Field)
}

func (suite *HandlersTestSuite) TestBoard_RequiresLogin() {
	w := suite.request(http.MethodGet, "/api/board", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPost, "/api/tasks", dto.CreateTaskRequest{Title: "x"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestCreateTask() {
	suite.register("alice")

	w := suite.request(http.MethodPost, "/api/tasks", dto.CreateTaskRequest{
		Title:    "Buy milk",
		DueDate:  "2025-06-30",
		Priority: "high",
	})
	assert.Equal(suite.T(), http.StatusAccepted, w.Code)

	b := suite.waitForBoard(func(b dto.BoardDTO) bool { return b.Total == 1 })
	task := b.Pending[0]
	assert.Equal(suite.T(), "Buy milk", task.Title)
	assert.Equal(suite.T(), "2025-06-30", task.DueDate)
	assert.Equal(suite.T(), models.TaskPriorityHigh, task.Priority)
	assert.Zero(suite.T(), b.Progress)
}

func (suite *HandlersTestSuite) TestCreateTask_Validation() {
	suite.register("alice")

	w := suite.request(http.MethodPost, "/api/tasks", dto.CreateTaskRequest{Title: "  "})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/tasks", dto.CreateTaskRequest{Title: "x", Priority: "urgent"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/tasks", dto.CreateTaskRequest{Title: "x", DueDate: "tomorrow"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	assert.Zero(suite.T(), suite.board().Total)
}

func (suite *HandlersTestSuite) TestUpdateMoveDeleteTask() {
	suite.register("alice")
	task := suite.createTask("Draft")

	title := "Final"
	w := suite.request(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", task.ID), dto.UpdateTaskRequest{Title: &title})
	assert.Equal(suite.T(), http.StatusAccepted, w.Code)
	suite.waitForBoard(func(b dto.BoardDTO) bool {
		return len(b.Pending) == 1 && b.Pending[0].Title == "Final"
	})

	w = suite.request(http.MethodPost, fmt.Sprintf("/api/tasks/%d/move", task.ID), dto.MoveTaskRequest{Status: "completed"})
	assert.Equal(suite.T(), http.StatusAccepted, w.Code)
	b := suite.waitForBoard(func(b dto.BoardDTO) bool { return len(b.Completed) == 1 })
	assert.InDelta(suite.T(), 1.0, b.Progress, 1e-9)
	assert.Equal(suite.T(), "Final", b.Completed[0].Title)

	w = suite.request(http.MethodPost, fmt.Sprintf("/api/tasks/%d/move", task.ID), dto.MoveTaskRequest{Status: "archived"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusAccepted, w.Code)
	suite.waitForBoard(func(b dto.BoardDTO) bool { return b.Total == 0 })

	w = suite.request(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestTaskAccess_OtherUser() {
	suite.register("alice")
	task := suite.createTask("Alice's")
	suite.request(http.MethodPost, "/api/auth/logout", nil)

	suite.register("bob")
	w := suite.request(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPatch, "/api/tasks/abc", dto.UpdateTaskRequest{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestDragAndDrop() {
	suite.register("alice")
	task := suite.createTask("Drag me")

	columns := map[string]dto.ColumnLayoutRequest{
		"pending":     {Left: 0, Top: 0, Right: 300, Bottom: 900},
		"in-progress": {Left: 300, Top: 0, Right: 600, Bottom: 900},
		"completed":   {Left: 600, Top: 0, Right: 900, Bottom: 900},
	}
	for status, rect := range columns {
		w := suite.request(http.MethodPut, "/api/board/columns/"+status, rect)
		suite.Require().Equal(http.StatusNoContent, w.Code)
	}

	w := suite.request(http.MethodPut, "/api/board/columns/archived", dto.ColumnLayoutRequest{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/drag/start", dto.DragStartRequest{TaskID: task.ID, X: 10, Y: 50})
	suite.Require().Equal(http.StatusOK, w.Code)
	var state dto.DragStateDTO
	suite.decode(w, &state)
	assert.True(suite.T(), state.Active)
	assert.Equal(suite.T(), task.ID, state.TaskID)

	w = suite.request(http.MethodPost, "/api/drag/delta", dto.DragDeltaRequest{DX: 300, DY: 20})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &state)
	assert.Equal(suite.T(), float32(310), state.X)
	assert.Equal(suite.T(), float32(70), state.Y)

	w = suite.request(http.MethodPost, "/api/drag/end", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var drop dto.DropResultDTO
	suite.decode(w, &drop)
	assert.True(suite.T(), drop.Moved)
	assert.Equal(suite.T(), models.TaskStatusInProgress, drop.Target)

	suite.waitForBoard(func(b dto.BoardDTO) bool { return len(b.InProgress) == 1 })

	w = suite.request(http.MethodPost, "/api/drag/end", nil)
	suite.decode(w, &drop)
	assert.False(suite.T(), drop.Moved)

	w = suite.request(http.MethodPost, "/api/drag/start", dto.DragStartRequest{TaskID: 9999})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestLogout_ClearsBoardKeepsUser() {
	suite.register("alice")
	suite.createTask("Keep")

	w := suite.request(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/board", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/login", dto.CredentialsRequest{Username: "alice", Password: "supersecret"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.waitForBoard(func(b dto.BoardDTO) bool { return b.Total == 1 })
}

func (suite *HandlersTestSuite) TestDeleteAccount() {
	suite.register("alice")
	suite.createTask("Gone")

	w := suite.request(http.MethodDelete, "/api/auth/me", nil)
	assert.Equal(suite.T(), http.StatusNoContent, w.Code)

	var users, tasks int64
	suite.Require().NoError(suite.db.Model(&models.User{}).Count(&users).Error)
	suite.Require().NoError(suite.db.Model(&models.Task{}).Count(&tasks).Error)
	assert.Zero(suite.T(), users)
	assert.Zero(suite.T(), tasks)

	w = suite.request(http.MethodPost, "/api/auth/login", dto.CredentialsRequest{Username: "alice", Password: "supersecret"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestAnonymousRequestsCreateNoWorkspace() {
	for i := 0; i < 3; i++ {
		suite.cookies = nil
		w := suite.request(http.MethodGet, "/api/board", nil)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
		w = suite.request(http.MethodPost, "/api/drag/end", nil)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	}
	assert.Zero(suite.T(), suite.registry.Len())

	suite.cookies = nil
	w := suite.request(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	suite.request(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(suite.T(), 1, suite.registry.Len())
}

func (suite *HandlersTestSuite) TestDialog() {
	suite.register("alice")
	task := suite.createTask("Edit me")

	w := suite.request(http.MethodGet, "/api/board/dialog", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var dialog dto.DialogDTO
	suite.decode(w, &dialog)
	assert.Equal(suite.T(), "browsing", dialog.Mode)

	w = suite.request(http.MethodPut, "/api/board/dialog", dto.DialogRequest{Mode: "editing", TaskID: task.ID})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &dialog)
	assert.Equal(suite.T(), "editing", dialog.Mode)
	assert.Equal(suite.T(), task.ID, dialog.TaskID)

	w = suite.request(http.MethodPut, "/api/board/dialog", dto.DialogRequest{Mode: "Settings"})
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/board/dialog", nil)
	dialog = dto.DialogDTO{}
	suite.decode(w, &dialog)
	assert.Equal(suite.T(), "settings", dialog.Mode)
	assert.Zero(suite.T(), dialog.TaskID)

	w = suite.request(http.MethodPut, "/api/board/dialog", dto.DialogRequest{Mode: "editing", TaskID: 9999})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPut, "/api/board/dialog", dto.DialogRequest{Mode: "fullscreen"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// closeNotifyingRecorder lets gin's Stream run against a recorder
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func (suite *HandlersTestSuite) TestStreamBoard() {
	suite.register("alice")
	suite.createTask("Streamed")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/board/stream", nil).WithContext(ctx)
	for _, c := range suite.cookies {
		req.AddCookie(c)
	}
	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		suite.router.ServeHTTP(w, req)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.FailNow("stream did not stop with its request")
	}

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "event:board")
	assert.Contains(suite.T(), w.Body.String(), "Streamed")
}

// TestHandlersTestSuite runs the test suite
func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
