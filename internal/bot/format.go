package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/cartdesk/cartdesk/internal/models"
)

const timeFormat = "2006-01-02 15:04"

// FormatRequest renders the full detail view of a request.
func FormatRequest(req *models.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  [%s]  %s priority\n", req.Code, req.Status, req.Priority)
	if req.Branch.Name != "" {
		fmt.Fprintf(&b, "  Branch:  %s\n", req.Branch.Name)
	}
	if req.User.Username != "" {
		fmt.Fprintf(&b, "  By:      %s\n", req.User.Username)
	}
	for _, item := range req.Items {
		name := item.CartridgeType.Name
		if name == "" {
			name = fmt.Sprintf("cartridge #%d", item.CartridgeTypeID)
		}
		fmt.Fprintf(&b, "  Item:    %s x%d\n", name, item.Quantity)
	}
	if req.Comment != nil {
		fmt.Fprintf(&b, "  Comment: %s\n", *req.Comment)
	}
	fmt.Fprintf(&b, "  Created: %s\n", req.CreatedAt.Format(timeFormat))
	if req.CompletedAt != nil {
		fmt.Fprintf(&b, "  Done:    %s\n", req.CompletedAt.Format(timeFormat))
	}
	return b.String()
}

// FormatRequestLine renders a one-line summary for lists.
func FormatRequestLine(req *models.Request) string {
	branch := req.Branch.Code
	if branch == "" {
		branch = fmt.Sprintf("#%d", req.BranchID)
	}
	return fmt.Sprintf("%s  [%s]  %s  %s  %s",
		req.Code, req.Status, req.Priority, branch, req.CreatedAt.Format(timeFormat))
}

// FormatRequestList renders a list of one-line summaries.
func FormatRequestList(reqs []models.Request) string {
	if len(reqs) == 0 {
		return "No requests found."
	}
	var b strings.Builder
	for i := range reqs {
		b.WriteString(FormatRequestLine(&reqs[i]))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatHistory renders a request's audit trail, oldest entry first.
func FormatHistory(code string, entries []models.LogEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No history for %s.", code)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "History for %s:\n", code)
	for _, e := range entries {
		b.WriteString("  ")
		b.WriteString(e.CreatedAt.Format(timeFormat))
		b.WriteString("  ")
		switch e.Action {
		case models.ActionCreated:
			b.WriteString("created")
		case models.ActionStatusChanged:
			from, to := "?", "?"
			if e.FromStatus != nil {
				from = *e.FromStatus
			}
			if e.ToStatus != nil {
				to = *e.ToStatus
			}
			fmt.Fprintf(&b, "%s -> %s", from, to)
		default:
			b.WriteString(e.Action)
		}
		if e.UserID == nil {
			b.WriteString("  (system)")
		}
		if e.Note != nil {
			fmt.Fprintf(&b, "  %q", *e.Note)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatSummary renders per-status counts for /stats.
func FormatSummary(counts map[string]int) string {
	var b strings.Builder
	b.WriteString("Requests by status:\n")
	total := 0
	for _, st := range []string{
		models.StatusNew, models.StatusInProgress, models.StatusDone,
		models.StatusCancelled, models.StatusArchived,
	} {
		fmt.Fprintf(&b, "  %-12s %d\n", st, counts[st])
		total += counts[st]
	}
	fmt.Fprintf(&b, "  %-12s %d\n", "total", total)
	return b.String()
}

// FormatAge renders a duration like "3h12m" for SLA alerts.
func FormatAge(since time.Time) string {
	d := time.Since(since).Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
