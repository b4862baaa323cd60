package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cartdesk/cartdesk/internal/models"
	"github.com/cartdesk/cartdesk/internal/request"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// In-memory SQLite gives each connection its own database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{}, &models.Branch{}, &models.CartridgeType{},
		&models.Request{}, &models.RequestItem{}, &models.LogEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// testServer seeds a branch, a cartridge type, a user and two requests, then
// returns an httptest server over the API.
func testServer(t *testing.T) (*httptest.Server, *request.Store) {
	t.Helper()
	db := testDB(t)

	branch := models.Branch{Code: "HQ", Name: "Headquarters", IsActive: true}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	cart := models.CartridgeType{SKU: "HP-26A", Name: "HP 26A Black"}
	if err := db.Create(&cart).Error; err != nil {
		t.Fatalf("seed cartridge: %v", err)
	}
	user := models.User{PlatformID: "u1", Username: "alice", Role: models.RoleBranchUser, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	store := request.NewStore(db)
	comment := "third floor printer"
	_, err := store.CreateRequest(request.CreateOpts{
		BranchID: branch.ID,
		UserID:   user.ID,
		Priority: models.PriorityHigh,
		Comment:  &comment,
		Items:    []request.ItemInput{{CartridgeTypeID: cart.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("seed request: %v", err)
	}
	second, err := store.CreateRequest(request.CreateOpts{
		BranchID: branch.ID,
		UserID:   user.ID,
		Items:    []request.ItemInput{{CartridgeTypeID: cart.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("seed second request: %v", err)
	}
	if _, err := store.UpdateStatus(second.Code, models.StatusInProgress, &user.ID, nil); err != nil {
		t.Fatalf("advance second request: %v", err)
	}

	srv := httptest.NewServer(newRouter(store))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStart_NilStore(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil store")
	}
	if !strings.Contains(err.Error(), "store is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "store is required")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	var body map[string]string
	if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestSummary(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		ByStatus   map[string]int `json:"by_status"`
		ByPriority map[string]int `json:"by_priority"`
		Total      int            `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/api/summary", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Total != 2 {
		t.Errorf("total = %d, want 2", body.Total)
	}
	if body.ByStatus[models.StatusNew] != 1 || body.ByStatus[models.StatusInProgress] != 1 {
		t.Errorf("by_status = %v", body.ByStatus)
	}
	if body.ByPriority[models.PriorityHigh] != 1 || body.ByPriority[models.PriorityNormal] != 1 {
		t.Errorf("by_priority = %v", body.ByPriority)
	}
}

func TestRequestList(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Requests []RequestRow `json:"requests"`
		Count    int          `json:"count"`
	}
	if code := getJSON(t, srv.URL+"/api/requests", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}
	row := body.Requests[0]
	if row.Branch != "Headquarters" || row.Requester != "alice" {
		t.Errorf("row = %+v", row)
	}
}

func TestRequestList_StatusFilter(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Requests []RequestRow `json:"requests"`
	}
	url := srv.URL + "/api/requests?status=" + models.StatusInProgress
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(body.Requests) != 1 {
		t.Fatalf("filtered = %d rows, want 1", len(body.Requests))
	}
	if body.Requests[0].Status != models.StatusInProgress {
		t.Errorf("status = %q, want in_progress", body.Requests[0].Status)
	}
}

func TestRequestList_BadParams(t *testing.T) {
	srv, _ := testServer(t)

	if code := getJSON(t, srv.URL+"/api/requests?branch_id=abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad branch_id status = %d, want 400", code)
	}
	if code := getJSON(t, srv.URL+"/api/requests?limit=-1", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", code)
	}
}

func TestRequestDetail(t *testing.T) {
	srv, store := testServer(t)
	reqs, err := store.List(request.ListFilters{Status: models.StatusNew})
	if err != nil || len(reqs) != 1 {
		t.Fatalf("List() = %d reqs, err %v", len(reqs), err)
	}

	var detail RequestDetail
	url := srv.URL + "/api/requests/" + reqs[0].Code
	if code := getJSON(t, url, &detail); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if detail.Code != reqs[0].Code || detail.Priority != models.PriorityHigh {
		t.Errorf("detail = %+v", detail)
	}
	if len(detail.Items) != 1 || detail.Items[0].SKU != "HP-26A" || detail.Items[0].Quantity != 3 {
		t.Errorf("items = %+v", detail.Items)
	}
	if detail.Comment == nil || *detail.Comment != "third floor printer" {
		t.Errorf("comment = %v", detail.Comment)
	}
}

func TestRequestDetail_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	if code := getJSON(t, srv.URL+"/api/requests/REQ-20260101000000-XXX", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestRequestHistory(t *testing.T) {
	srv, store := testServer(t)
	reqs, err := store.List(request.ListFilters{Status: models.StatusInProgress})
	if err != nil || len(reqs) != 1 {
		t.Fatalf("List() = %d reqs, err %v", len(reqs), err)
	}

	var body struct {
		Code    string       `json:"code"`
		History []HistoryRow `json:"history"`
	}
	url := srv.URL + "/api/requests/" + reqs[0].Code + "/history"
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(body.History) != 2 {
		t.Fatalf("history = %d entries, want 2", len(body.History))
	}
	if body.History[0].Action != models.ActionCreated {
		t.Errorf("first action = %q, want created", body.History[0].Action)
	}
	last := body.History[1]
	if last.Action != models.ActionStatusChanged || last.ToStatus == nil || *last.ToStatus != models.StatusInProgress {
		t.Errorf("last entry = %+v", last)
	}
}

func TestRequestHistory_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	if code := getJSON(t, srv.URL+"/api/requests/REQ-20260101000000-XXX/history", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	srv, _ := testServer(t)
	if code := getJSON(t, srv.URL+"/nonexistent", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}
