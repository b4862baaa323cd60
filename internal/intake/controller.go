// Package intake drives the step-by-step conversation that builds a cartridge
// request. Drafts live only in memory; the durable store is touched once, at
// confirmation.
package intake

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cartdesk/cartdesk/internal/models"
	"github.com/cartdesk/cartdesk/internal/request"
)

// Catalog is the reference-data lookup the controller needs for prompts.
// Satisfied by catalog.Catalog.
type Catalog interface {
	Branches() ([]models.Branch, error)
	CartridgeTypes() ([]models.CartridgeType, error)
	BranchByID(id uint) (*models.Branch, error)
	CartridgeTypeByID(id uint) (*models.CartridgeType, error)
}

// RequestCreator persists a confirmed draft. Satisfied by request.Store.
type RequestCreator interface {
	CreateRequest(opts request.CreateOpts) (*models.Request, error)
}

// Option is one button the user can press in response to a prompt.
type Option struct {
	Label string
	Data  string // callback payload, e.g. "branch:3"
}

// Reply is what the controller wants shown to the user after an event.
// Request is non-nil only after a successful confirmation.
type Reply struct {
	Text    string
	Options []Option
	Request *models.Request
}

// Controller runs the intake state machine for all users. Per-user drafts
// live in the session Manager; the controller itself is stateless and safe
// for concurrent use.
type Controller struct {
	sessions *Manager
	catalog  Catalog
	creator  RequestCreator
}

// ControllerOpts holds parameters for creating a Controller.
type ControllerOpts struct {
	Sessions *Manager
	Catalog  Catalog
	Creator  RequestCreator
}

// NewController creates a Controller.
func NewController(opts ControllerOpts) (*Controller, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("intake: controller: sessions is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("intake: controller: catalog is required")
	}
	if opts.Creator == nil {
		return nil, fmt.Errorf("intake: controller: creator is required")
	}
	return &Controller{
		sessions: opts.Sessions,
		catalog:  opts.Catalog,
		creator:  opts.Creator,
	}, nil
}

// Sessions exposes the session manager for the daemon's eviction cron.
func (c *Controller) Sessions() *Manager {
	return c.sessions
}

// Start opens a fresh intake session for a user, discarding any draft in
// progress, and returns the branch prompt.
func (c *Controller) Start(platformID string, userID uint) (Reply, error) {
	s := &Session{
		PlatformID: platformID,
		UserID:     userID,
		State:      StateSelectingBranch,
	}
	c.sessions.Put(s)
	return c.promptBranch()
}

// SelectBranch handles the branch choice.
func (c *Controller) SelectBranch(platformID string, branchID uint) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	if s.State != StateSelectingBranch {
		return Reply{}, &UnexpectedEventError{State: s.State, Event: "select_branch"}
	}

	branch, err := c.catalog.BranchByID(branchID)
	if err != nil {
		return Reply{}, &InputError{Msg: "that branch is not available, pick one from the list"}
	}

	s.BranchID = branch.ID
	s.BranchName = branch.Name
	s.State = StateSelectingPriority
	c.sessions.Put(s)
	return c.promptPriority()
}

// SelectPriority handles the priority choice.
func (c *Controller) SelectPriority(platformID, priority string) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	if s.State != StateSelectingPriority {
		return Reply{}, &UnexpectedEventError{State: s.State, Event: "select_priority"}
	}
	if !models.ValidPriority(priority) {
		return Reply{}, &InputError{Msg: "priority must be low, normal, or high"}
	}

	s.Priority = priority
	s.State = StateSelectingCartridge
	c.sessions.Put(s)
	return c.promptCartridge()
}

// SelectCartridge handles the cartridge type choice.
func (c *Controller) SelectCartridge(platformID string, cartridgeID uint) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	if s.State != StateSelectingCartridge {
		return Reply{}, &UnexpectedEventError{State: s.State, Event: "select_cartridge"}
	}

	ct, err := c.catalog.CartridgeTypeByID(cartridgeID)
	if err != nil {
		return Reply{}, &InputError{Msg: "that cartridge is not in the catalog, pick one from the list"}
	}

	s.CartridgeID = ct.ID
	s.CartridgeName = ct.Name
	s.State = StateEnteringQuantity
	c.sessions.Put(s)
	return Reply{Text: "How many cartridges do you need? Enter a number."}, nil
}

// EnterQuantity handles free-text quantity input. Anything that is not a
// positive integer is rejected with an InputError and the state stays put,
// so the user can just type again.
func (c *Controller) EnterQuantity(platformID, text string) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	if s.State != StateEnteringQuantity {
		return Reply{}, &UnexpectedEventError{State: s.State, Event: "enter_quantity"}
	}

	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || qty <= 0 {
		return Reply{}, &InputError{Msg: fmt.Sprintf("%q is not a valid quantity, enter a positive number", strings.TrimSpace(text))}
	}

	s.Quantity = qty
	s.State = StateAddingComment
	c.sessions.Put(s)
	return Reply{Text: `Add a comment for the request, or send "-" to skip.`}, nil
}

// AddComment handles the optional free-text comment. "-" or an empty message
// means no comment.
func (c *Controller) AddComment(platformID, text string) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	if s.State != StateAddingComment {
		return Reply{}, &UnexpectedEventError{State: s.State, Event: "add_comment"}
	}

	text = strings.TrimSpace(text)
	if text != "" && text != "-" {
		s.Comment = &text
	} else {
		s.Comment = nil
	}
	s.State = StateConfirming
	c.sessions.Put(s)

	return Reply{
		Text: c.summary(s),
		Options: []Option{
			{Label: "Confirm", Data: "confirm:yes"},
			{Label: "Cancel", Data: "confirm:no"},
		},
	}, nil
}

// Confirm commits the draft. On success the session is cleared and the reply
// carries the stored request. On a persistence failure the session is also
// cleared: the draft may or may not have survived, and re-prompting against
// an unknown store state would invite duplicates.
func (c *Controller) Confirm(platformID string) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	if s.State != StateConfirming {
		return Reply{}, &UnexpectedEventError{State: s.State, Event: "confirm"}
	}

	c.sessions.Delete(platformID)

	req, err := c.creator.CreateRequest(request.CreateOpts{
		BranchID: s.BranchID,
		UserID:   s.UserID,
		Priority: s.Priority,
		Comment:  s.Comment,
		Items: []request.ItemInput{
			{CartridgeTypeID: s.CartridgeID, Quantity: s.Quantity},
		},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("intake: commit draft: %w", err)
	}

	return Reply{
		Text:    fmt.Sprintf("Request %s created. Track it with /req %s.", req.Code, req.Code),
		Request: req,
	}, nil
}

// Cancel discards the draft at any step.
func (c *Controller) Cancel(platformID string) (Reply, error) {
	if c.sessions.Get(platformID) == nil {
		return Reply{}, ErrNoSession
	}
	c.sessions.Delete(platformID)
	return Reply{Text: "Request cancelled. Nothing was saved."}, nil
}

// CurrentPrompt re-renders the prompt for the session's current state, used
// to re-ask after recoverable input errors.
func (c *Controller) CurrentPrompt(platformID string) (Reply, error) {
	s := c.sessions.Get(platformID)
	if s == nil {
		return Reply{}, ErrNoSession
	}
	switch s.State {
	case StateSelectingBranch:
		return c.promptBranch()
	case StateSelectingPriority:
		return c.promptPriority()
	case StateSelectingCartridge:
		return c.promptCartridge()
	case StateEnteringQuantity:
		return Reply{Text: "How many cartridges do you need? Enter a number."}, nil
	case StateAddingComment:
		return Reply{Text: `Add a comment for the request, or send "-" to skip.`}, nil
	case StateConfirming:
		return Reply{
			Text: c.summary(s),
			Options: []Option{
				{Label: "Confirm", Data: "confirm:yes"},
				{Label: "Cancel", Data: "confirm:no"},
			},
		}, nil
	}
	return Reply{}, fmt.Errorf("intake: session %s in unknown state %d", platformID, s.State)
}

func (c *Controller) promptBranch() (Reply, error) {
	branches, err := c.catalog.Branches()
	if err != nil {
		return Reply{}, fmt.Errorf("intake: load branches: %w", err)
	}
	if len(branches) == 0 {
		return Reply{}, fmt.Errorf("intake: no active branches configured")
	}
	opts := make([]Option, 0, len(branches))
	for _, b := range branches {
		opts = append(opts, Option{Label: b.Name, Data: fmt.Sprintf("branch:%d", b.ID)})
	}
	return Reply{Text: "Which branch is this request for?", Options: opts}, nil
}

func (c *Controller) promptPriority() (Reply, error) {
	return Reply{
		Text: "How urgent is it?",
		Options: []Option{
			{Label: "Low", Data: "priority:" + models.PriorityLow},
			{Label: "Normal", Data: "priority:" + models.PriorityNormal},
			{Label: "High", Data: "priority:" + models.PriorityHigh},
		},
	}, nil
}

func (c *Controller) promptCartridge() (Reply, error) {
	types, err := c.catalog.CartridgeTypes()
	if err != nil {
		return Reply{}, fmt.Errorf("intake: load cartridge types: %w", err)
	}
	if len(types) == 0 {
		return Reply{}, fmt.Errorf("intake: no cartridge types configured")
	}
	opts := make([]Option, 0, len(types))
	for _, ct := range types {
		opts = append(opts, Option{Label: ct.Name, Data: fmt.Sprintf("cartridge:%d", ct.ID)})
	}
	return Reply{Text: "Which cartridge do you need?", Options: opts}, nil
}

// summary renders the confirmation text for a completed draft.
func (c *Controller) summary(s *Session) string {
	var b strings.Builder
	b.WriteString("Please confirm your request:\n")
	fmt.Fprintf(&b, "  Branch:    %s\n", s.BranchName)
	fmt.Fprintf(&b, "  Priority:  %s\n", s.Priority)
	fmt.Fprintf(&b, "  Cartridge: %s\n", s.CartridgeName)
	fmt.Fprintf(&b, "  Quantity:  %d\n", s.Quantity)
	if s.Comment != nil {
		fmt.Fprintf(&b, "  Comment:   %s\n", *s.Comment)
	}
	return b.String()
}
