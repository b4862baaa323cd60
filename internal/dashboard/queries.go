package dashboard

import (
	"time"

	"github.com/cartdesk/cartdesk/internal/models"
	"github.com/cartdesk/cartdesk/internal/request"
)

// RequestRow holds one request for the list view.
type RequestRow struct {
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	Branch    string    `json:"branch"`
	Requester string    `json:"requester"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemRow holds one request line item.
type ItemRow struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// RequestDetail holds the full request for the detail view.
type RequestDetail struct {
	Code        string     `json:"code"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Branch      string     `json:"branch"`
	Requester   string     `json:"requester"`
	Comment     *string    `json:"comment,omitempty"`
	Items       []ItemRow  `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HistoryRow holds one audit entry.
type HistoryRow struct {
	Action     string    `json:"action"`
	FromStatus *string   `json:"from_status,omitempty"`
	ToStatus   *string   `json:"to_status,omitempty"`
	Note       *string   `json:"note,omitempty"`
	System     bool      `json:"system"`
	CreatedAt  time.Time `json:"created_at"`
}

func toRequestRow(req *models.Request) RequestRow {
	return RequestRow{
		Code:      req.Code,
		Status:    req.Status,
		Priority:  req.Priority,
		Branch:    req.Branch.Name,
		Requester: req.User.Username,
		ItemCount: len(req.Items),
		CreatedAt: req.CreatedAt,
	}
}

func toRequestDetail(req *models.Request) RequestDetail {
	items := make([]ItemRow, len(req.Items))
	for i, it := range req.Items {
		items[i] = ItemRow{
			SKU:      it.CartridgeType.SKU,
			Name:     it.CartridgeType.Name,
			Quantity: it.Quantity,
		}
	}
	return RequestDetail{
		Code:        req.Code,
		Status:      req.Status,
		Priority:    req.Priority,
		Branch:      req.Branch.Name,
		Requester:   req.User.Username,
		Comment:     req.Comment,
		Items:       items,
		CreatedAt:   req.CreatedAt,
		CompletedAt: req.CompletedAt,
	}
}

func toHistoryRow(e *models.LogEntry) HistoryRow {
	return HistoryRow{
		Action:     e.Action,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		Note:       e.Note,
		System:     e.UserID == nil,
		CreatedAt:  e.CreatedAt,
	}
}

// summaryResponse shapes per-status and per-priority counts into a stable
// JSON object with a grand total.
func summaryResponse(statuses []request.StatusCount, priorities []request.PriorityCount) map[string]any {
	byStatus := make(map[string]int, len(statuses))
	total := 0
	for _, c := range statuses {
		byStatus[c.Status] = c.Count
		total += c.Count
	}
	byPriority := make(map[string]int, len(priorities))
	for _, c := range priorities {
		byPriority[c.Priority] = c.Count
	}
	return map[string]any{
		"by_status":   byStatus,
		"by_priority": byPriority,
		"total":       total,
	}
}
