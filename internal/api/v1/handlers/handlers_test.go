package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	v1 "taskboard/internal/api/v1"
	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/cache"
	"taskboard/internal/middleware"
	"taskboard/internal/service"
	"taskboard/internal/store"
)

// createTestApp wires the full route table over in-memory stores.
func createTestApp() *fiber.App {
	tasks := store.NewMemoryTaskStore()
	users := store.NewMemoryUserStore()
	c := cache.New(nil)
	sync := service.NewSynchronizer(tasks, users, c)
	h := handlers.New(
		service.NewTaskService(tasks, sync, c),
		service.NewUserService(users, sync, c),
	)

	app := fiber.New()
	app.Use(middleware.ErrorHandler())
	v1.RegisterRoutes(app, h)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Error encoding request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Error in %s %s: %v", method, path, err)
	}
	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	return resp, result
}

func createUser(t *testing.T, app *fiber.App, name, email string) map[string]interface{} {
	t.Helper()
	resp, result := doJSON(t, app, "POST", "/api/users", map[string]interface{}{
		"name":  name,
		"email": email,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201 creating user but got %d", resp.StatusCode)
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data field in create user response")
	}
	return data
}

func createTask(t *testing.T, app *fiber.App, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp, result := doJSON(t, app, "POST", "/api/tasks", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201 creating task but got %d", resp.StatusCode)
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data field in create task response")
	}
	return data
}

func TestAssignmentLifecycle(t *testing.T) {
	app := createTestApp()

	// create Ann
	ann := createUser(t, app, "Ann", "ann@x.com")
	annID := ann["id"].(string)
	if pending, ok := ann["pendingTasks"].([]interface{}); !ok || len(pending) != 0 {
		t.Errorf("Expected empty pendingTasks on new user, got %v", ann["pendingTasks"])
	}

	// create a task assigned to Ann
	task := createTask(t, app, map[string]interface{}{
		"name":         "T1",
		"deadline":     "2025-01-01",
		"assignedUser": annID,
	})
	taskID := task["id"].(string)
	if task["assignedUserName"] != "Ann" {
		t.Errorf("Expected assignedUserName Ann but got %v", task["assignedUserName"])
	}

	// re-fetch Ann: pendingTasks contains exactly the task id
	resp, result := doJSON(t, app, "GET", "/api/users/"+annID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	data := result["data"].(map[string]interface{})
	pending, _ := data["pendingTasks"].([]interface{})
	if len(pending) != 1 || pending[0] != taskID {
		t.Errorf("Expected pendingTasks [%s] but got %v", taskID, pending)
	}

	// delete Ann
	resp, _ = doJSON(t, app, "DELETE", "/api/users/"+annID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204 but got %d", resp.StatusCode)
	}

	// the task is now unassigned
	resp, result = doJSON(t, app, "GET", "/api/tasks/"+taskID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	data = result["data"].(map[string]interface{})
	if data["assignedUser"] != "" || data["assignedUserName"] != "unassigned" {
		t.Errorf("Expected unassigned task after user delete, got %v / %v",
			data["assignedUser"], data["assignedUserName"])
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	app := createTestApp()
	createUser(t, app, "Ann", "dup@x.com")

	resp, result := doJSON(t, app, "POST", "/api/users", map[string]interface{}{
		"name":  "Imposter",
		"email": "dup@x.com",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 but got %d", resp.StatusCode)
	}
	if result["message"] != "User with this email already exists" {
		t.Errorf("Unexpected message %v", result["message"])
	}

	// exactly one user holds the email
	resp, result = doJSON(t, app, "GET", `/api/users?count=true&where={"email":"dup@x.com"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	if result["data"].(float64) != 1 {
		t.Errorf("Expected count 1 but got %v", result["data"])
	}
}

func TestCreateTaskValidation(t *testing.T) {
	app := createTestApp()

	resp, result := doJSON(t, app, "POST", "/api/tasks", map[string]interface{}{
		"name": "no deadline",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 but got %d", resp.StatusCode)
	}
	if result["message"] != "Name and deadline are required" {
		t.Errorf("Unexpected message %v", result["message"])
	}

	resp, _ = doJSON(t, app, "POST", "/api/tasks", map[string]interface{}{
		"deadline": "2025-01-01",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing name but got %d", resp.StatusCode)
	}

	// An empty-string deadline decodes to a zero time, not a missing field.
	resp, result = doJSON(t, app, "POST", "/api/tasks", map[string]interface{}{
		"name":     "empty deadline",
		"deadline": "",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty deadline but got %d", resp.StatusCode)
	}
	if result["message"] != "Name and deadline are required" {
		t.Errorf("Unexpected message %v", result["message"])
	}
}

func TestListTasksFilterAndCount(t *testing.T) {
	app := createTestApp()
	createTask(t, app, map[string]interface{}{"name": "done", "deadline": "2025-01-01", "completed": true})
	createTask(t, app, map[string]interface{}{"name": "open", "deadline": "2025-01-02"})

	resp, result := doJSON(t, app, "GET", `/api/tasks?where={"completed":true}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	list, _ := result["data"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("Expected 1 completed task but got %d", len(list))
	}
	if list[0].(map[string]interface{})["name"] != "done" {
		t.Errorf("Expected the completed task, got %v", list[0])
	}

	resp, result = doJSON(t, app, "GET", `/api/tasks?where={"completed":true}&count=true`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	if _, isList := result["data"].([]interface{}); isList {
		t.Errorf("Expected a count, not a record list")
	}
	if result["data"].(float64) != 1 {
		t.Errorf("Expected count 1 but got %v", result["data"])
	}
}

func TestListTasksBadWhereIsRejected(t *testing.T) {
	app := createTestApp()

	resp, result := doJSON(t, app, "GET", `/api/tasks?where={broken`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 but got %d", resp.StatusCode)
	}
	if result["message"] != "Invalid where parameter" {
		t.Errorf("Unexpected message %v", result["message"])
	}
}

func TestListTasksSortSkipLimit(t *testing.T) {
	app := createTestApp()
	for i := 0; i < 5; i++ {
		createTask(t, app, map[string]interface{}{
			"name":     fmt.Sprintf("t%d", i),
			"deadline": fmt.Sprintf("2025-01-0%d", i+1),
		})
	}

	resp, result := doJSON(t, app, "GET", `/api/tasks?sort={"deadline":-1}&skip=1&limit=2`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	list, _ := result["data"].([]interface{})
	if len(list) != 2 {
		t.Fatalf("Expected 2 tasks but got %d", len(list))
	}
	first := list[0].(map[string]interface{})["name"]
	second := list[1].(map[string]interface{})["name"]
	if first != "t3" || second != "t2" {
		t.Errorf("Expected [t3 t2] but got [%v %v]", first, second)
	}
}

func TestGetTaskSelectProjection(t *testing.T) {
	app := createTestApp()
	task := createTask(t, app, map[string]interface{}{"name": "proj", "deadline": "2025-01-01"})
	id := task["id"].(string)

	resp, result := doJSON(t, app, "GET", "/api/tasks/"+id+`?select={"name":1}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	data := result["data"].(map[string]interface{})
	if data["name"] != "proj" {
		t.Errorf("Expected name in projected record, got %v", data)
	}
	if data["id"] != id {
		t.Errorf("Expected id kept by inclusion projection, got %v", data)
	}
	if _, ok := data["description"]; ok {
		t.Errorf("Expected description to be projected away, got %v", data)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	app := createTestApp()
	resp, result := doJSON(t, app, "GET", "/api/tasks/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 but got %d", resp.StatusCode)
	}
	if result["message"] != "Task not found" {
		t.Errorf("Unexpected message %v", result["message"])
	}
	if result["data"] != nil {
		t.Errorf("Expected null data, got %v", result["data"])
	}
}

func TestUpdateTaskReassignsOverHTTP(t *testing.T) {
	app := createTestApp()
	a := createUser(t, app, "A", "a@x.com")
	b := createUser(t, app, "B", "b@x.com")
	task := createTask(t, app, map[string]interface{}{
		"name": "T", "deadline": "2025-01-01", "assignedUser": a["id"],
	})
	id := task["id"].(string)

	resp, result := doJSON(t, app, "PUT", "/api/tasks/"+id, map[string]interface{}{
		"name": "T", "deadline": "2025-01-01", "assignedUser": b["id"],
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 but got %d", resp.StatusCode)
	}
	data := result["data"].(map[string]interface{})
	if data["assignedUserName"] != "B" {
		t.Errorf("Expected assignedUserName B but got %v", data["assignedUserName"])
	}

	_, result = doJSON(t, app, "GET", "/api/users/"+a["id"].(string), nil)
	pending, _ := result["data"].(map[string]interface{})["pendingTasks"].([]interface{})
	if len(pending) != 0 {
		t.Errorf("Expected old assignee's pendingTasks emptied, got %v", pending)
	}

	_, result = doJSON(t, app, "GET", "/api/users/"+b["id"].(string), nil)
	pending, _ = result["data"].(map[string]interface{})["pendingTasks"].([]interface{})
	if len(pending) != 1 || pending[0] != id {
		t.Errorf("Expected new assignee's pendingTasks [%s], got %v", id, pending)
	}
}

func TestDeleteTaskRemovesPendingEntry(t *testing.T) {
	app := createTestApp()
	u := createUser(t, app, "U", "u@x.com")
	task := createTask(t, app, map[string]interface{}{
		"name": "T", "deadline": "2025-01-01", "assignedUser": u["id"],
	})
	id := task["id"].(string)

	resp, _ := doJSON(t, app, "DELETE", "/api/tasks/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204 but got %d", resp.StatusCode)
	}

	_, result := doJSON(t, app, "GET", "/api/users/"+u["id"].(string), nil)
	pending, _ := result["data"].(map[string]interface{})["pendingTasks"].([]interface{})
	if len(pending) != 0 {
		t.Errorf("Expected pendingTasks emptied after task delete, got %v", pending)
	}
}

func TestUpdateUserValidation(t *testing.T) {
	app := createTestApp()
	u := createUser(t, app, "U", "u@x.com")

	resp, result := doJSON(t, app, "PUT", "/api/users/"+u["id"].(string), map[string]interface{}{
		"name": "no email",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 but got %d", resp.StatusCode)
	}
	if result["message"] != "Name and email are required" {
		t.Errorf("Unexpected message %v", result["message"])
	}
}
