package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/cartdesk/cartdesk/internal/catalog"
	"github.com/cartdesk/cartdesk/internal/intake"
	"github.com/cartdesk/cartdesk/internal/models"
	"github.com/cartdesk/cartdesk/internal/request"
	"github.com/cartdesk/cartdesk/internal/users"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
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
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Branch{},
		&models.CartridgeType{},
		&models.Request{},
		&models.RequestItem{},
		&models.LogEntry{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type testEnv struct {
	router  *Router
	adapter *MockAdapter
	store   *request.Store
	users   *users.Service
	db      *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testDB(t)

	branch := models.Branch{Code: "HQ", Name: "Headquarters", IsActive: true}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	ct := models.CartridgeType{SKU: "HP-26A", Name: "HP 26A Black"}
	if err := db.Create(&ct).Error; err != nil {
		t.Fatalf("seed cartridge type: %v", err)
	}

	store := request.NewStore(db)
	userSvc := users.New(db)

	ctrl, err := intake.NewController(intake.ControllerOpts{
		Sessions: intake.NewManager(0),
		Catalog:  catalog.New(db),
		Creator:  store,
	})
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}

	adapter := NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock adapter: %v", err)
	}

	router, err := NewRouter(RouterOpts{
		Users:    userSvc,
		Intake:   ctrl,
		Store:    store,
		Notifier: NewNotifier(adapter, "admin-channel"),
		Adapter:  adapter,
		Out:      &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	return &testEnv{router: router, adapter: adapter, store: store, users: userSvc, db: db}
}

func (e *testEnv) handle(t *testing.T, userID, text, button string) OutboundMessage {
	t.Helper()
	e.router.Handle(context.Background(), InboundMessage{
		Platform:   "mock",
		ChannelID:  "chan-1",
		UserID:     userID,
		UserName:   "user-" + userID,
		Text:       text,
		ButtonData: button,
	})
	sent, ok := e.adapter.LastSent()
	if !ok {
		t.Fatal("router sent nothing")
	}
	return sent
}

func (e *testEnv) makeExecutor(t *testing.T, userID string) {
	t.Helper()
	if _, err := e.users.Register(userID, "user-"+userID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.users.SetRole(userID, models.RoleExecutor); err != nil {
		t.Fatalf("set role: %v", err)
	}
}

func TestRouter_Help(t *testing.T) {
	e := newTestEnv(t)
	sent := e.handle(t, "u1", "/help", "")
	if !strings.Contains(sent.Text, "/new") {
		t.Errorf("help text %q missing /new", sent.Text)
	}
}

func TestRouter_FullIntakeFlow(t *testing.T) {
	e := newTestEnv(t)

	sent := e.handle(t, "u1", "/new", "")
	if len(sent.Buttons) != 1 || !strings.HasPrefix(sent.Buttons[0].Data, "branch:") {
		t.Fatalf("branch prompt buttons = %+v", sent.Buttons)
	}

	sent = e.handle(t, "u1", "", sent.Buttons[0].Data)
	if len(sent.Buttons) != 3 {
		t.Fatalf("priority prompt buttons = %d, want 3", len(sent.Buttons))
	}

	sent = e.handle(t, "u1", "", "priority:high")
	if len(sent.Buttons) != 1 || !strings.HasPrefix(sent.Buttons[0].Data, "cartridge:") {
		t.Fatalf("cartridge prompt buttons = %+v", sent.Buttons)
	}

	sent = e.handle(t, "u1", "", sent.Buttons[0].Data)
	if !strings.Contains(sent.Text, "How many") {
		t.Errorf("quantity prompt = %q", sent.Text)
	}

	// Bad quantity is rejected and the user is re-prompted.
	sent = e.handle(t, "u1", "-3", "")
	if !strings.Contains(sent.Text, "How many") {
		t.Errorf("after bad quantity, last message = %q, want re-prompt", sent.Text)
	}

	e.handle(t, "u1", "5", "")
	sent = e.handle(t, "u1", "replacing the old one", "")
	if !strings.Contains(sent.Text, "Headquarters") || !strings.Contains(sent.Text, "HP 26A Black") {
		t.Errorf("confirmation summary = %q", sent.Text)
	}

	sent = e.handle(t, "u1", "", "confirm:yes")
	if !strings.Contains(sent.Text, "REQ-") {
		t.Errorf("commit reply = %q, want a request code", sent.Text)
	}

	reqs, err := e.store.List(request.ListFilters{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("persisted requests = %d, want 1", len(reqs))
	}
	if reqs[0].Priority != models.PriorityHigh {
		t.Errorf("Priority = %q, want high", reqs[0].Priority)
	}
	if len(reqs[0].Items) != 1 || reqs[0].Items[0].Quantity != 5 {
		t.Errorf("Items = %+v, want one line of 5", reqs[0].Items)
	}

	// An admin-channel announcement went out.
	announced := false
	for _, m := range e.adapter.AllSent() {
		if m.ChannelID == "admin-channel" && strings.Contains(m.Text, reqs[0].Code) {
			announced = true
		}
	}
	if !announced {
		t.Error("no admin announcement for the new request")
	}
}

func TestRouter_StaleButton(t *testing.T) {
	e := newTestEnv(t)

	e.handle(t, "u1", "/new", "")
	sent := e.handle(t, "u1", "", "priority:high") // flow wants a branch
	if !strings.Contains(sent.Text, "no longer valid") {
		t.Errorf("stale button reply = %q", sent.Text)
	}
}

func TestRouter_ButtonWithoutSession(t *testing.T) {
	e := newTestEnv(t)
	sent := e.handle(t, "u1", "", "branch:1")
	if !strings.Contains(sent.Text, "/new") {
		t.Errorf("no-session reply = %q, want hint to /new", sent.Text)
	}
}

func TestRouter_ExecutorGating(t *testing.T) {
	e := newTestEnv(t)

	sent := e.handle(t, "u1", "/take REQ-X", "")
	if !strings.Contains(sent.Text, "Only executors") {
		t.Errorf("gating reply = %q", sent.Text)
	}
	sent = e.handle(t, "u1", "/stats", "")
	if !strings.Contains(sent.Text, "Only executors") {
		t.Errorf("stats gating reply = %q", sent.Text)
	}
	sent = e.handle(t, "u1", "/setrole u2 executor", "")
	if !strings.Contains(sent.Text, "Only admins") {
		t.Errorf("setrole gating reply = %q", sent.Text)
	}
}

func TestRouter_TakeCompleteFlow(t *testing.T) {
	e := newTestEnv(t)
	e.makeExecutor(t, "exec")

	requester, err := e.users.Register("u1", "user-u1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	req, err := e.store.CreateRequest(request.CreateOpts{
		BranchID: 1, UserID: requester.ID,
		Items: []request.ItemInput{{CartridgeTypeID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateRequest() error: %v", err)
	}

	sent := e.handle(t, "exec", "/take "+req.Code, "")
	if !strings.Contains(sent.Text, "in_progress") {
		t.Errorf("take reply = %q", sent.Text)
	}

	sent = e.handle(t, "exec", "/complete "+req.Code, "")
	if !strings.Contains(sent.Text, "done") {
		t.Errorf("complete reply = %q", sent.Text)
	}

	// Completing again is rejected with the current status in the message.
	sent = e.handle(t, "exec", "/complete "+req.Code, "")
	if !strings.Contains(sent.Text, "cannot move") {
		t.Errorf("double-complete reply = %q", sent.Text)
	}

	stored, err := e.store.GetByCode(req.Code)
	if err != nil {
		t.Fatalf("GetByCode() error: %v", err)
	}
	if stored.Status != models.StatusDone {
		t.Errorf("Status = %q, want done", stored.Status)
	}
	if stored.AssignedExecutorID == nil {
		t.Error("AssignedExecutorID not set by /take")
	}
}

func TestRouter_RejectOwnNewRequest(t *testing.T) {
	e := newTestEnv(t)

	requester, err := e.users.Register("u1", "user-u1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	other, err := e.users.Register("u2", "user-u2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	mine, err := e.store.CreateRequest(request.CreateOpts{
		BranchID: 1, UserID: requester.ID,
		Items: []request.ItemInput{{CartridgeTypeID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateRequest() error: %v", err)
	}
	theirs, err := e.store.CreateRequest(request.CreateOpts{
		BranchID: 1, UserID: other.ID,
		Items: []request.ItemInput{{CartridgeTypeID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateRequest() error: %v", err)
	}

	// Not mine: refused.
	sent := e.handle(t, "u1", "/reject "+theirs.Code, "")
	if !strings.Contains(sent.Text, "your own") {
		t.Errorf("reject others reply = %q", sent.Text)
	}

	// Mine and still new: allowed, with the reason logged.
	sent = e.handle(t, "u1", "/reject "+mine.Code+" ordered by mistake", "")
	if !strings.Contains(sent.Text, "cancelled") {
		t.Errorf("reject own reply = %q", sent.Text)
	}
	history, err := e.store.History(mine.Code)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	last := history[len(history)-1]
	if last.Note == nil || *last.Note != "ordered by mistake" {
		t.Errorf("reject note = %v, want %q", last.Note, "ordered by mistake")
	}
}

func TestRouter_ReqNotFound(t *testing.T) {
	e := newTestEnv(t)
	sent := e.handle(t, "u1", "/req REQ-20260101000000-XYZ", "")
	if !strings.Contains(sent.Text, "No such request") {
		t.Errorf("reply = %q", sent.Text)
	}
}

func TestRouter_UnknownCommand(t *testing.T) {
	e := newTestEnv(t)
	sent := e.handle(t, "u1", "/frobnicate", "")
	if !strings.Contains(sent.Text, "Unknown command") {
		t.Errorf("reply = %q", sent.Text)
	}
}

func TestRouter_IgnoresSelfMessages(t *testing.T) {
	e := newTestEnv(t)

	router, err := NewRouter(RouterOpts{
		Users:     e.users,
		Intake:    e.router.intake,
		Store:     e.store,
		Adapter:   e.adapter,
		BotUserID: "bot-1",
		Out:       &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}

	router.Handle(context.Background(), InboundMessage{UserID: "bot-1", Text: "/help"})
	if e.adapter.SentCount() != 0 {
		t.Errorf("sent %d messages to a self-message, want 0", e.adapter.SentCount())
	}
}

func TestRouter_InactiveUserIgnored(t *testing.T) {
	e := newTestEnv(t)

	if _, err := e.users.Register("u1", "user-u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.users.SetActive("u1", false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	e.router.Handle(context.Background(), InboundMessage{UserID: "u1", UserName: "user-u1", Text: "/help"})
	if e.adapter.SentCount() != 0 {
		t.Errorf("sent %d messages to an inactive user, want 0", e.adapter.SentCount())
	}
}

func TestRouter_SetRole(t *testing.T) {
	e := newTestEnv(t)

	if _, err := e.users.Register("admin", "user-admin"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.users.SetRole("admin", models.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if _, err := e.users.Register("u2", "user-u2"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sent := e.handle(t, "admin", "/setrole u2 executor", "")
	if !strings.Contains(sent.Text, "now executor") {
		t.Errorf("setrole reply = %q", sent.Text)
	}
	u2, err := e.users.Resolve("u2")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if u2.Role != models.RoleExecutor {
		t.Errorf("Role = %q, want executor", u2.Role)
	}

	sent = e.handle(t, "admin", "/setrole ghost executor", "")
	if !strings.Contains(sent.Text, "No user") {
		t.Errorf("setrole unknown user reply = %q", sent.Text)
	}
}

func TestRouter_MyRequests(t *testing.T) {
	e := newTestEnv(t)

	requester, err := e.users.Register("u1", "user-u1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	req, err := e.store.CreateRequest(request.CreateOpts{
		BranchID: 1, UserID: requester.ID,
		Items: []request.ItemInput{{CartridgeTypeID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateRequest() error: %v", err)
	}

	sent := e.handle(t, "u1", "/my", "")
	if !strings.Contains(sent.Text, req.Code) {
		t.Errorf("/my reply %q missing %q", sent.Text, req.Code)
	}

	sent = e.handle(t, "u2", "/my", "")
	if !strings.Contains(sent.Text, "No requests") {
		t.Errorf("/my for empty user = %q", sent.Text)
	}
}
