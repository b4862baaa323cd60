package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/cartdesk/cartdesk/internal/intake"
	"github.com/cartdesk/cartdesk/internal/models"
	"github.com/cartdesk/cartdesk/internal/request"
	"github.com/cartdesk/cartdesk/internal/users"
)

const helpText = `CartDesk commands:
  /new              start a cartridge request
  /cancel           abandon the request in progress
  /my               your recent requests
  /req <code>       show one request
  /history <code>   audit trail of a request

Executor commands:
  /take <code>      take a new request into work
  /complete <code>  mark a request done
  /reject <code>    cancel a request
  /archive <code>   archive a done or cancelled request
  /stats            counts by status

Admin commands:
  /setrole <user> <branch_user|executor|admin>`

// Router classifies inbound chat messages and routes them: slash commands to
// their handlers, button presses and free text to the intake controller, and
// everything else to a help hint.
type Router struct {
	users     *users.Service
	intake    *intake.Controller
	store     *request.Store
	notifier  *Notifier
	adapter   Adapter
	botUserID string
	out       io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Users     *users.Service
	Intake    *intake.Controller
	Store     *request.Store
	Notifier  *Notifier
	Adapter   Adapter
	BotUserID string    // bot's user ID for self-message filtering
	Out       io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Users == nil {
		return nil, fmt.Errorf("bot: router: users is required")
	}
	if opts.Intake == nil {
		return nil, fmt.Errorf("bot: router: intake is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: router: store is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: router: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		users:     opts.Users,
		intake:    opts.Intake,
		store:     opts.Store,
		notifier:  opts.Notifier,
		adapter:   opts.Adapter,
		botUserID: opts.BotUserID,
		out:       out,
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message -> ignore
//  2. Button press -> intake callback
//  3. Slash command -> command handler
//  4. Free text with an active intake session -> intake turn
//  5. Everything else -> help hint
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	botID := r.botUserID
	if botID == "" {
		// The real ID is only known after the adapter connects.
		if ider, ok := r.adapter.(BotUserIDer); ok {
			botID = ider.BotUserID()
		}
	}
	if botID != "" && msg.UserID == botID {
		return
	}

	user, err := r.users.Register(msg.UserID, msg.UserName)
	if err != nil {
		log.Printf("bot: router: register %s: %v", msg.UserID, err)
		return
	}
	if !user.IsActive {
		return
	}

	text := strings.TrimSpace(msg.Text)
	fmt.Fprintf(r.out, "bot: router: recv [user=%s] text=%q button=%q\n",
		msg.UserName, truncate(text, 80), msg.ButtonData)

	switch {
	case msg.ButtonData != "":
		r.handleButton(ctx, msg, user)
	case strings.HasPrefix(text, "/"):
		r.handleCommand(ctx, msg, user, text)
	case r.intake.Sessions().Get(msg.UserID) != nil:
		r.handleTurn(ctx, msg, user, text)
	default:
		r.reply(ctx, msg, "Send /new to start a request, or /help for all commands.")
	}
}

// handleCommand dispatches a slash command.
func (r *Router) handleCommand(ctx context.Context, msg InboundMessage, user *models.User, text string) {
	fields := strings.Fields(text)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/start", "/help":
		r.reply(ctx, msg, helpText)

	case "/new":
		reply, err := r.intake.Start(msg.UserID, user.ID)
		r.sendIntakeReply(ctx, msg, reply, err)

	case "/cancel":
		reply, err := r.intake.Cancel(msg.UserID)
		if errors.Is(err, intake.ErrNoSession) {
			r.reply(ctx, msg, "Nothing to cancel.")
			return
		}
		r.sendIntakeReply(ctx, msg, reply, err)

	case "/my":
		reqs, err := r.store.GetUserRequests(user.ID, 10)
		if err != nil {
			log.Printf("bot: router: /my: %v", err)
			r.reply(ctx, msg, "Could not load your requests, try again later.")
			return
		}
		r.reply(ctx, msg, FormatRequestList(reqs))

	case "/req":
		if len(args) != 1 {
			r.reply(ctx, msg, "Usage: /req <code>")
			return
		}
		req, err := r.store.GetByCode(args[0])
		if err != nil {
			r.replyStoreError(ctx, msg, err)
			return
		}
		r.reply(ctx, msg, FormatRequest(req))

	case "/history":
		if len(args) != 1 {
			r.reply(ctx, msg, "Usage: /history <code>")
			return
		}
		entries, err := r.store.History(args[0])
		if err != nil {
			r.replyStoreError(ctx, msg, err)
			return
		}
		r.reply(ctx, msg, FormatHistory(args[0], entries))

	case "/take":
		r.handleTransition(ctx, msg, user, args, models.StatusInProgress, "Usage: /take <code>")

	case "/complete":
		r.handleTransition(ctx, msg, user, args, models.StatusDone, "Usage: /complete <code>")

	case "/reject":
		r.handleReject(ctx, msg, user, args)

	case "/archive":
		r.handleTransition(ctx, msg, user, args, models.StatusArchived, "Usage: /archive <code>")

	case "/stats":
		if !isExecutor(user) {
			r.reply(ctx, msg, "Only executors can view stats.")
			return
		}
		counts, err := r.store.Summary()
		if err != nil {
			log.Printf("bot: router: /stats: %v", err)
			r.reply(ctx, msg, "Could not load stats, try again later.")
			return
		}
		byStatus := make(map[string]int, len(counts))
		for _, c := range counts {
			byStatus[c.Status] = c.Count
		}
		r.reply(ctx, msg, FormatSummary(byStatus))

	case "/setrole":
		if user.Role != models.RoleAdmin {
			r.reply(ctx, msg, "Only admins can change roles.")
			return
		}
		if len(args) != 2 {
			r.reply(ctx, msg, "Usage: /setrole <user> <branch_user|executor|admin>")
			return
		}
		if err := r.users.SetRole(args[0], args[1]); err != nil {
			if errors.Is(err, users.ErrNotFound) {
				r.reply(ctx, msg, fmt.Sprintf("No user %q. They must message the bot once first.", args[0]))
				return
			}
			r.reply(ctx, msg, err.Error())
			return
		}
		r.reply(ctx, msg, fmt.Sprintf("User %s is now %s.", args[0], args[1]))

	default:
		r.reply(ctx, msg, fmt.Sprintf("Unknown command %s. Send /help.", cmd))
	}
}

// handleTransition runs an executor-gated status change command.
func (r *Router) handleTransition(ctx context.Context, msg InboundMessage, user *models.User, args []string, to, usage string) {
	if !isExecutor(user) {
		r.reply(ctx, msg, "Only executors can do that.")
		return
	}
	if len(args) != 1 {
		r.reply(ctx, msg, usage)
		return
	}

	actorID := user.ID
	req, err := r.store.UpdateStatus(args[0], to, &actorID, nil)
	if err != nil {
		r.replyStoreError(ctx, msg, err)
		return
	}
	r.reply(ctx, msg, fmt.Sprintf("Request %s is now %s.", req.Code, req.Status))
	if r.notifier != nil {
		r.notifier.StatusChanged(ctx, req, user.Username)
	}
}

// handleReject cancels a request. Executors can cancel anything cancellable;
// a branch user can only cancel their own request while it is still new.
func (r *Router) handleReject(ctx context.Context, msg InboundMessage, user *models.User, args []string) {
	if len(args) < 1 {
		r.reply(ctx, msg, "Usage: /reject <code> [reason]")
		return
	}
	code := args[0]

	if !isExecutor(user) {
		req, err := r.store.GetByCode(code)
		if err != nil {
			r.replyStoreError(ctx, msg, err)
			return
		}
		if req.UserID != user.ID {
			r.reply(ctx, msg, "You can only cancel your own requests.")
			return
		}
		if req.Status != models.StatusNew {
			r.reply(ctx, msg, "That request is already in work; ask an executor to cancel it.")
			return
		}
	}

	var note *string
	if len(args) > 1 {
		reason := strings.Join(args[1:], " ")
		note = &reason
	}

	actorID := user.ID
	req, err := r.store.UpdateStatus(code, models.StatusCancelled, &actorID, note)
	if err != nil {
		r.replyStoreError(ctx, msg, err)
		return
	}
	r.reply(ctx, msg, fmt.Sprintf("Request %s cancelled.", req.Code))
	if r.notifier != nil {
		r.notifier.StatusChanged(ctx, req, user.Username)
	}
}

// handleButton routes a button press to the intake controller.
func (r *Router) handleButton(ctx context.Context, msg InboundMessage, user *models.User) {
	kind, value, _ := strings.Cut(msg.ButtonData, ":")

	var (
		reply intake.Reply
		err   error
	)
	switch kind {
	case "branch":
		id, perr := strconv.ParseUint(value, 10, 32)
		if perr != nil {
			return
		}
		reply, err = r.intake.SelectBranch(msg.UserID, uint(id))
	case "priority":
		reply, err = r.intake.SelectPriority(msg.UserID, value)
	case "cartridge":
		id, perr := strconv.ParseUint(value, 10, 32)
		if perr != nil {
			return
		}
		reply, err = r.intake.SelectCartridge(msg.UserID, uint(id))
	case "confirm":
		if value == "yes" {
			reply, err = r.intake.Confirm(msg.UserID)
			if err == nil && reply.Request != nil && r.notifier != nil {
				r.notifier.RequestCreated(ctx, reply.Request, user.Username)
			}
		} else {
			reply, err = r.intake.Cancel(msg.UserID)
		}
	case "cancel":
		reply, err = r.intake.Cancel(msg.UserID)
	default:
		return
	}

	r.sendIntakeReply(ctx, msg, reply, err)
}

// handleTurn feeds free text into the intake session. Which event it is
// depends on the step the session is waiting at.
func (r *Router) handleTurn(ctx context.Context, msg InboundMessage, user *models.User, text string) {
	s := r.intake.Sessions().Get(msg.UserID)
	if s == nil {
		return
	}

	var (
		reply intake.Reply
		err   error
	)
	switch s.State {
	case intake.StateEnteringQuantity:
		reply, err = r.intake.EnterQuantity(msg.UserID, text)
	case intake.StateAddingComment:
		reply, err = r.intake.AddComment(msg.UserID, text)
	default:
		r.reply(ctx, msg, "Use the buttons above, or /cancel to start over.")
		return
	}

	r.sendIntakeReply(ctx, msg, reply, err)
}

// sendIntakeReply delivers a controller reply, translating the intake error
// taxonomy into user-facing text. Recoverable input errors re-render the
// current prompt so the user can try again.
func (r *Router) sendIntakeReply(ctx context.Context, msg InboundMessage, reply intake.Reply, err error) {
	if err == nil {
		r.send(ctx, msg, reply)
		return
	}

	var ierr *intake.InputError
	if errors.As(err, &ierr) {
		r.reply(ctx, msg, ierr.Msg)
		if again, perr := r.intake.CurrentPrompt(msg.UserID); perr == nil {
			r.send(ctx, msg, again)
		}
		return
	}

	var uerr *intake.UnexpectedEventError
	if errors.As(err, &uerr) {
		r.reply(ctx, msg, "That button is no longer valid. Use the latest prompt, or /cancel.")
		return
	}

	if errors.Is(err, intake.ErrNoSession) {
		r.reply(ctx, msg, "No request in progress. Send /new to start one.")
		return
	}

	log.Printf("bot: router: intake: %v", err)
	r.reply(ctx, msg, "Something went wrong saving your request. Send /my to check whether it was created before retrying.")
}

// replyStoreError translates store errors into user-facing text.
func (r *Router) replyStoreError(ctx context.Context, msg InboundMessage, err error) {
	if errors.Is(err, request.ErrNotFound) {
		r.reply(ctx, msg, "No such request.")
		return
	}
	var terr *request.TransitionError
	if errors.As(err, &terr) {
		if terr.Conflict {
			r.reply(ctx, msg, fmt.Sprintf("Request %s was changed by someone else, check /req %s.", terr.Code, terr.Code))
		} else {
			r.reply(ctx, msg, fmt.Sprintf("Request %s is %s; it cannot move to %s.", terr.Code, terr.From, terr.To))
		}
		return
	}
	log.Printf("bot: router: store: %v", err)
	r.reply(ctx, msg, "Something went wrong, try again later.")
}

func (r *Router) send(ctx context.Context, msg InboundMessage, reply intake.Reply) {
	out := OutboundMessage{ChannelID: msg.ChannelID, Text: reply.Text}
	for _, opt := range reply.Options {
		out.Buttons = append(out.Buttons, Button{Label: opt.Label, Data: opt.Data})
	}
	if err := r.adapter.Send(ctx, out); err != nil {
		log.Printf("bot: router: send: %v", err)
	}
}

func (r *Router) reply(ctx context.Context, msg InboundMessage, text string) {
	err := r.adapter.Send(ctx, OutboundMessage{ChannelID: msg.ChannelID, Text: text})
	if err != nil {
		log.Printf("bot: router: send: %v", err)
	}
}

func isExecutor(u *models.User) bool {
	return u.Role == models.RoleExecutor || u.Role == models.RoleAdmin
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
