package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/veille/app/database"
	"github.com/lysyi3m/veille/app/feed"
	"github.com/lysyi3m/veille/app/snapshot"
	"github.com/lysyi3m/veille/app/tasks"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

var errTabNotFound = errors.New("tab not found")

func NewHandler(configCache *feed.ConfigCache, store SnapshotStoreInterface,
	stateRepo database.StateRepository, manualRepo database.ManualItemRepository,
	runRepo database.RunRepository, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		configCache: configCache,
		store:       store,
		stateRepo:   stateRepo,
		manualRepo:  manualRepo,
		runRepo:     runRepo,
		generator:   generator,
		scheduler:   scheduler,
		now:         time.Now,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("tab")

	tabConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Tab configuration not found", "tab", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	snap, err := h.store.Load(name)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Snapshot error", "operation", "load_snapshot", "tab", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	items, err := h.withManualItems(name, snap.Items)
	if err != nil {
		slog.Error("Database error", "operation", "list_manual_items", "tab", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	slices.SortStableFunc(items, func(a, b feed.Item) int {
		return strings.Compare(b.DateISO, a.DateISO)
	})

	rss, err := h.generator.Run(tabConfig, items, snap.UpdatedTime())
	if err != nil {
		slog.Error("RSS generation error", "tab", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", snap.UpdatedAt)

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             h.now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListTabs(c *gin.Context) {
	configs := h.configCache.GetEnabledConfigs()
	tabs := make([]TabSummary, 0, len(configs))

	for _, tabConfig := range configs {
		summary := TabSummary{
			Key:    tabConfig.Name,
			Title:  tabConfig.DisplayTitle(),
			Social: tabConfig.IsSocial(),
		}

		var snapItems []feed.Item
		snap, err := h.store.Load(tabConfig.Name)
		switch {
		case err == nil:
			snapItems = snap.Items
			summary.UpdatedAt = &snap.UpdatedAt
		case !errors.Is(err, snapshot.ErrNotFound):
			slog.Error("Snapshot error", "operation", "load_snapshot", "tab", tabConfig.Name, "error", err)
		}
		items, err := h.withManualItems(tabConfig.Name, snapItems)
		if err == nil {
			items, err = h.overlay(tabConfig.Name, items)
		}
		if err != nil {
			slog.Error("Database error", "operation", "tab_summary", "tab", tabConfig.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		summary.Count = len(items)
		for _, item := range items {
			if !item.Read {
				summary.Unread++
			}
		}

		tabs = append(tabs, summary)
	}

	c.JSON(http.StatusOK, gin.H{
		"tabs":  tabs,
		"total": len(tabs),
	})
}

func (h *Handler) APIListItems(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}

	items, ok := h.selectItems(c, q)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ItemsResponse{
		Items:    q.Paginate(items),
		Total:    len(items),
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

// APIAddItem stores a manually added item. Its id is derived from the link
// and tab like hash-scheme feed items, so adding the same link twice is a
// no-op.
func (h *Handler) APIAddItem(c *gin.Context) {
	var req manualItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab_key, title and link are required", "details": err.Error()})
		return
	}

	if _, err := h.configCache.GetConfig(req.TabKey); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab configuration not found"})
		return
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	now := h.now()
	manual := &database.ManualItem{
		TabKey:    req.TabKey,
		ID:        feed.AssignID(feed.RawEntry{Link: req.Link}, req.TabKey, feed.IDSchemeHash),
		Title:     req.Title,
		Summary:   req.Summary,
		Link:      req.Link,
		Source:    req.Source,
		Tags:      tags,
		DateISO:   feed.FormatDate(now),
		CreatedAt: now,
	}

	inserted, err := h.manualRepo.AddManualItem(manual)
	if err != nil {
		slog.Error("Database error", "operation", "add_manual_item", "tab", req.TabKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if inserted {
		if req.Read {
			err = h.stateRepo.SetRead(manual.TabKey, manual.ID, true)
		}
		if err == nil && req.Pinned {
			err = h.stateRepo.SetPinned(manual.TabKey, manual.ID, true)
		}
		if err != nil {
			slog.Error("Database error", "operation", "set_manual_item_state", "tab", req.TabKey, "item", manual.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	}

	items, err := h.loadItems(manual.TabKey)
	if err != nil {
		h.respondLoadError(c, manual.TabKey, err)
		return
	}
	item := manualToItem(*manual)
	if i := slices.IndexFunc(items, func(it feed.Item) bool { return it.ID == manual.ID }); i >= 0 {
		item = items[i]
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
		slog.Info("Manual item added", "tab", manual.TabKey, "item", manual.ID)
	}
	c.JSON(status, item)
}

func (h *Handler) APISetRead(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	tabKey, itemID, ok := h.findItem(c)
	if !ok {
		return
	}

	if err := h.stateRepo.SetRead(tabKey, itemID, *req.Read); err != nil {
		slog.Error("Database error", "operation", "set_read", "tab", tabKey, "item", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tab": tabKey, "id": itemID, "read": *req.Read})
}

func (h *Handler) APISetPinned(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	tabKey, itemID, ok := h.findItem(c)
	if !ok {
		return
	}

	if err := h.stateRepo.SetPinned(tabKey, itemID, *req.Pinned); err != nil {
		slog.Error("Database error", "operation", "set_pinned", "tab", tabKey, "item", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tab": tabKey, "id": itemID, "pinned": *req.Pinned})
}

func (h *Handler) APIMarkAllRead(c *gin.Context) {
	name := c.Param("tab")

	items, err := h.loadItems(name)
	if err != nil {
		h.respondLoadError(c, name, err)
		return
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	marked, err := h.stateRepo.MarkAllRead(name, ids)
	if err != nil {
		slog.Error("Database error", "operation", "mark_all_read", "tab", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tab": name, "marked": marked})
}

func (h *Handler) APIExport(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", ExportCSV)
	if format != ExportCSV && format != ExportJSON {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported export format", "details": format})
		return
	}

	items, ok := h.selectItems(c, q)
	if !ok {
		return
	}

	var buf bytes.Buffer
	var err error
	contentType := "application/json; charset=utf-8"
	if format == ExportCSV {
		contentType = "text/csv; charset=utf-8"
		err = WriteCSV(&buf, items)
	} else {
		err = WriteJSON(&buf, items)
	}
	if err != nil {
		slog.Error("Export error", "tab", q.Tab, "format", format, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}

	filename := "veille"
	if q.Tab != "" {
		filename += "-" + q.Tab
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+"."+format))
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handler) APIMailtoReport(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}
	if q.Tab == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tab parameter"})
		return
	}

	tabConfig, err := h.configCache.GetConfig(q.Tab)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab configuration not found"})
		return
	}

	items, ok := h.selectItems(c, q)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, BuildReport(tabConfig.DisplayTitle(), items))
}

func (h *Handler) APIEmailReport(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"mailto": BuildMailto(req.To, req.Subject, req.Body),
	})
}

func (h *Handler) APIRefreshTab(c *gin.Context) {
	name := c.Param("tab")

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Tab configuration not found", "tab", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab configuration not found"})
		return
	}

	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running"})
		return
	}

	if err := h.scheduler.EnqueueTab(name); err != nil {
		slog.Error("Error enqueueing aggregation task", "tab", name, "error", err)
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Failed to enqueue aggregation task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Aggregation task enqueued",
		"tab":     name,
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	name := c.Param("tab")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab configuration not found"})
		return
	}

	limit := defaultRunsLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = min(max(n, 1), maxRunsLimit)
	}

	runs, err := h.runRepo.ListRuns(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "tab", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tab":   name,
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) parseQuery(c *gin.Context) (*ItemQuery, bool) {
	q, err := ParseItemQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
		return nil, false
	}
	return q, true
}

// selectItems loads the items the query targets (one tab, or every enabled
// tab when none is given) and applies its filters and ordering.
func (h *Handler) selectItems(c *gin.Context, q *ItemQuery) ([]feed.Item, bool) {
	var tabNames []string
	if q.Tab != "" {
		tabNames = []string{q.Tab}
	} else {
		for _, tabConfig := range h.configCache.GetEnabledConfigs() {
			tabNames = append(tabNames, tabConfig.Name)
		}
	}

	var all []feed.Item
	for _, name := range tabNames {
		items, err := h.loadItems(name)
		if err != nil {
			h.respondLoadError(c, name, err)
			return nil, false
		}
		all = append(all, items...)
	}

	return q.Select(all, h.now()), true
}

// loadItems returns the snapshot and manual items of a tab with the viewer
// state overlaid. A tab that was never aggregated has only its manual items.
func (h *Handler) loadItems(name string) ([]feed.Item, error) {
	if _, err := h.configCache.GetConfig(name); err != nil {
		return nil, errTabNotFound
	}

	var snapItems []feed.Item
	snap, err := h.store.Load(name)
	switch {
	case err == nil:
		snapItems = snap.Items
	case !errors.Is(err, snapshot.ErrNotFound):
		return nil, err
	}

	items, err := h.withManualItems(name, snapItems)
	if err != nil {
		return nil, err
	}

	return h.overlay(name, items)
}

// withManualItems appends the tab's manual items to a copy of the snapshot
// items. A manual item whose link is already in the snapshot is skipped.
func (h *Handler) withManualItems(tabKey string, items []feed.Item) ([]feed.Item, error) {
	result := slices.Clone(items)
	if result == nil {
		result = []feed.Item{}
	}
	if h.manualRepo == nil {
		return result, nil
	}

	manual, err := h.manualRepo.ListManualItems(tabKey)
	if err != nil {
		return nil, err
	}
	if len(manual) == 0 {
		return result, nil
	}

	for _, m := range manual {
		result = append(result, manualToItem(m))
	}
	result, _ = feed.Dedup(result)
	return result, nil
}

func manualToItem(m database.ManualItem) feed.Item {
	return feed.Item{
		ID:      m.ID,
		Title:   m.Title,
		Summary: m.Summary,
		Link:    m.Link,
		Source:  m.Source,
		Tags:    m.Tags,
		DateISO: m.DateISO,
		TabKey:  m.TabKey,
	}
}

// overlay applies stored read/pin state to a copy of the items. Snapshot
// files are never modified.
func (h *Handler) overlay(tabKey string, items []feed.Item) ([]feed.Item, error) {
	result := slices.Clone(items)
	if h.stateRepo == nil {
		return result, nil
	}

	states, err := h.stateRepo.GetStates(tabKey)
	if err != nil {
		return nil, err
	}

	for i := range result {
		if state, ok := states[result[i].ID]; ok {
			result[i].Read = state.Read
			result[i].Pinned = state.Pinned
		}
	}
	return result, nil
}

func (h *Handler) findItem(c *gin.Context) (string, string, bool) {
	tabKey, itemID := c.Param("tab"), c.Param("id")

	items, err := h.loadItems(tabKey)
	if err != nil {
		h.respondLoadError(c, tabKey, err)
		return "", "", false
	}

	if !slices.ContainsFunc(items, func(item feed.Item) bool { return item.ID == itemID }) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return "", "", false
	}

	return tabKey, itemID, true
}

func (h *Handler) respondLoadError(c *gin.Context, name string, err error) {
	if errors.Is(err, errTabNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab configuration not found"})
		return
	}
	slog.Error("Snapshot error", "operation", "load_items", "tab", name, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load items"})
}
