package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cartdesk/cartdesk/internal/request"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, store *request.Store) {
	router.GET("/healthz", handleHealth())

	api := router.Group("/api")
	api.GET("/summary", handleSummary(store))
	api.GET("/requests", handleRequestList(store))
	api.GET("/requests/:code", handleRequestDetail(store))
	api.GET("/requests/:code/history", handleRequestHistory(store))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleSummary(store *request.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		byStatus, err := store.Summary()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "summary query failed"})
			return
		}
		byPriority, err := store.SummaryByPriority()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "summary query failed"})
			return
		}
		c.JSON(http.StatusOK, summaryResponse(byStatus, byPriority))
	}
}

func handleRequestList(store *request.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := request.ListFilters{
			Status: c.Query("status"),
		}
		if v := c.Query("branch_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "branch_id must be an integer"})
				return
			}
			filters.BranchID = uint(id)
		}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			filters.Limit = n
		}

		reqs, err := store.List(filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list query failed"})
			return
		}
		rows := make([]RequestRow, len(reqs))
		for i := range reqs {
			rows[i] = toRequestRow(&reqs[i])
		}
		c.JSON(http.StatusOK, gin.H{"requests": rows, "count": len(rows)})
	}
}

func handleRequestDetail(store *request.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := store.GetByCode(c.Param("code"))
		if err != nil {
			if errors.Is(err, request.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, toRequestDetail(req))
	}
}

func handleRequestHistory(store *request.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		entries, err := store.History(code)
		if err != nil {
			if errors.Is(err, request.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
			return
		}
		rows := make([]HistoryRow, len(entries))
		for i := range entries {
			rows[i] = toHistoryRow(&entries[i])
		}
		c.JSON(http.StatusOK, gin.H{"code": code, "history": rows})
	}
}
