package handlers

import (
	"maps"
	"net/http"
	"slices"
	"time"

	"cache-store-api/internal/cache"
	"cache-store-api/internal/logging"
	"cache-store-api/internal/metrics"
	"cache-store-api/internal/realtime"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// CacheHandler exposes a SimpleCache over HTTP. The embedded pool serves the
// deferred write endpoints.
type CacheHandler struct {
	cache.Aware
	cache     *cache.SimpleCache
	namespace string
	hub       *realtime.Hub
	metrics   *metrics.Metrics
}

// NewCacheHandler creates a handler for c. hub and m may be nil.
func NewCacheHandler(c *cache.SimpleCache, namespace string, hub *realtime.Hub, m *metrics.Metrics) *CacheHandler {
	h := &CacheHandler{cache: c, namespace: namespace, hub: hub, metrics: m}
	h.SetPool(c.Pool())
	return h
}

// SetRequest is the payload of PUT /api/cache/:key
type SetRequest struct {
	Value any `json:"value"`
	TTL   any `json:"ttl"`
}

// DeferredRequest is the payload of POST /api/cache/deferred
type DeferredRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	TTL   any    `json:"ttl"`
}

// BatchGetRequest is the payload of POST /api/cache/batch/get
type BatchGetRequest struct {
	Keys    []string `json:"keys" binding:"required"`
	Default any      `json:"default"`
}

// BatchSetRequest is the payload of POST /api/cache/batch/set
type BatchSetRequest struct {
	Values map[string]any `json:"values" binding:"required"`
	TTL    any            `json:"ttl"`
}

// BatchDeleteRequest is the payload of POST /api/cache/batch/delete
type BatchDeleteRequest struct {
	Keys []string `json:"keys" binding:"required"`
}

type missing struct{}

// Get handles GET /api/cache/:key
// A miss is not an error: it returns hit=false and the "default" query value.
func (h *CacheHandler) Get(c *gin.Context) {
	start := time.Now()
	key, ok := h.key(c, "get", start)
	if !ok {
		return
	}

	v, err := h.cache.Get(c.Request.Context(), key, missing{})
	if err != nil {
		h.fail(c, "get", 1, start, err)
		return
	}

	if _, miss := v.(missing); miss {
		h.metrics.Observe("get", metrics.ResultMiss, 1, time.Since(start))
		var def any
		if q, ok := c.GetQuery("default"); ok {
			def = q
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "hit": false, "value": def})
		return
	}

	h.metrics.Observe("get", metrics.ResultHit, 1, time.Since(start))
	c.JSON(http.StatusOK, gin.H{"key": key, "hit": true, "value": v})
}

// Has handles HEAD /api/cache/:key
func (h *CacheHandler) Has(c *gin.Context) {
	start := time.Now()
	has, err := h.cache.Has(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, "has", 1, start, err)
		return
	}
	if !has {
		h.metrics.Observe("has", metrics.ResultMiss, 1, time.Since(start))
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.Observe("has", metrics.ResultHit, 1, time.Since(start))
	c.Status(http.StatusOK)
}

// Set handles PUT /api/cache/:key
func (h *CacheHandler) Set(c *gin.Context) {
	start := time.Now()
	key, ok := h.key(c, "set", start)
	if !ok {
		return
	}

	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ttl, err := cache.ParseTTL(req.TTL)
	if err != nil {
		h.fail(c, "set", 1, start, err)
		return
	}

	if err := h.cache.Set(c.Request.Context(), key, req.Value, ttl); err != nil {
		h.fail(c, "set", 1, start, err)
		return
	}

	h.metrics.Observe("set", metrics.ResultOK, 1, time.Since(start))
	h.publish(realtime.OpSet, key)
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/cache/:key
func (h *CacheHandler) Delete(c *gin.Context) {
	start := time.Now()
	key, ok := h.key(c, "delete", start)
	if !ok {
		return
	}

	if err := h.cache.Delete(c.Request.Context(), key); err != nil {
		h.fail(c, "delete", 1, start, err)
		return
	}

	h.metrics.Observe("delete", metrics.ResultOK, 1, time.Since(start))
	h.publish(realtime.OpDelete, key)
	c.Status(http.StatusNoContent)
}

// Clear handles DELETE /api/cache
func (h *CacheHandler) Clear(c *gin.Context) {
	start := time.Now()
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		h.fail(c, "clear", 0, start, err)
		return
	}

	h.metrics.Observe("clear", metrics.ResultOK, 0, time.Since(start))
	h.publish(realtime.OpClear)
	logging.Op().Info("cache cleared", "namespace", h.namespace, "client_id", c.GetString("client_id"))
	c.Status(http.StatusNoContent)
}

// GetMultiple handles POST /api/cache/batch/get
func (h *CacheHandler) GetMultiple(c *gin.Context) {
	start := time.Now()
	var req BatchGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. keys is required."})
		return
	}

	values, err := h.cache.GetMultiple(c.Request.Context(), req.Keys, req.Default)
	if err != nil {
		h.fail(c, "get_multiple", len(req.Keys), start, err)
		return
	}

	h.metrics.Observe("get_multiple", metrics.ResultOK, len(values), time.Since(start))
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// SetMultiple handles POST /api/cache/batch/set
// Every key is attempted; a partial failure still reports the written keys on
// the change feed.
func (h *CacheHandler) SetMultiple(c *gin.Context) {
	start := time.Now()
	var req BatchSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. values is required."})
		return
	}
	ttl, err := cache.ParseTTL(req.TTL)
	if err != nil {
		h.fail(c, "set_multiple", len(req.Values), start, err)
		return
	}

	ok, err := h.cache.SetMultiple(c.Request.Context(), req.Values, ttl)
	if errors.Is(err, cache.ErrStorageFailure) || ok {
		keys, _ := cache.ValidateKeys(sortedKeys(req.Values))
		h.publish(realtime.OpSet, keys...)
	}
	if err != nil {
		h.fail(c, "set_multiple", len(req.Values), start, err)
		return
	}

	h.metrics.Observe("set_multiple", metrics.ResultOK, len(req.Values), time.Since(start))
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

// DeleteMultiple handles POST /api/cache/batch/delete
func (h *CacheHandler) DeleteMultiple(c *gin.Context) {
	start := time.Now()
	var req BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. keys is required."})
		return
	}

	ok, err := h.cache.DeleteMultiple(c.Request.Context(), req.Keys)
	if errors.Is(err, cache.ErrStorageFailure) || ok {
		keys, _ := cache.ValidateKeys(req.Keys)
		h.publish(realtime.OpDelete, keys...)
	}
	if err != nil {
		h.fail(c, "delete_multiple", len(req.Keys), start, err)
		return
	}

	h.metrics.Observe("delete_multiple", metrics.ResultOK, len(req.Keys), time.Since(start))
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

// SaveDeferred handles POST /api/cache/deferred
func (h *CacheHandler) SaveDeferred(c *gin.Context) {
	start := time.Now()
	if !h.HasPool() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Deferred writes are not available"})
		return
	}

	var req DeferredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ttl, err := cache.ParseTTL(req.TTL)
	if err != nil {
		h.fail(c, "save_deferred", 1, start, err)
		return
	}
	item, err := h.Pool().NewItem(req.Key, req.Value)
	if err != nil {
		h.fail(c, "save_deferred", 1, start, err)
		return
	}
	if _, err := item.ExpiresAfter(ttl); err != nil {
		h.fail(c, "save_deferred", 1, start, err)
		return
	}

	h.Pool().SaveDeferred(item)
	h.metrics.Observe("save_deferred", metrics.ResultOK, 1, time.Since(start))
	c.JSON(http.StatusAccepted, gin.H{"key": item.Key(), "pending": h.pending()})
}

// Commit handles POST /api/cache/commit
// A failed commit keeps the buffer so the caller can retry.
func (h *CacheHandler) Commit(c *gin.Context) {
	start := time.Now()
	if !h.HasPool() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Deferred writes are not available"})
		return
	}

	pending := h.pending()
	if err := h.Pool().Commit(c.Request.Context()); err != nil {
		logging.Op().Error("commit failed", "namespace", h.namespace, "pending", h.pending(), "error", err)
		h.metrics.Observe("commit", metrics.ResultError, pending, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to commit deferred writes",
			"pending": h.pending(),
		})
		return
	}

	h.metrics.Observe("commit", metrics.ResultOK, pending, time.Since(start))
	h.publish(realtime.OpCommit)
	c.JSON(http.StatusOK, gin.H{"committed": pending, "pending": h.pending()})
}

// pending returns the deferred buffer size when the pool exposes it, -1 otherwise.
func (h *CacheHandler) pending() int {
	if p, ok := h.Pool().(interface{ Pending() int }); ok {
		return p.Pending()
	}
	return -1
}

// key validates the :key path parameter, answering 400 itself on failure.
func (h *CacheHandler) key(c *gin.Context, op string, start time.Time) (string, bool) {
	key, err := cache.ValidateKey(c.Param("key"))
	if err != nil {
		h.fail(c, op, 1, start, err)
		return "", false
	}
	return key, true
}

// fail maps a cache error to its HTTP status.
func (h *CacheHandler) fail(c *gin.Context, op string, n int, start time.Time, err error) {
	switch {
	case errors.Is(err, cache.ErrInvalidKey), errors.Is(err, cache.ErrInvalidExpiration):
		h.metrics.Observe(op, metrics.ResultInvalid, n, time.Since(start))
		if c.Request.Method == http.MethodHead {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.metrics.Observe(op, metrics.ResultError, n, time.Since(start))
		logging.Op().Error("cache operation failed", "op", op, "namespace", h.namespace, "error", err)
		if c.Request.Method == http.MethodHead {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cache storage failure"})
	}
}

func (h *CacheHandler) publish(op string, keys ...string) {
	h.hub.Publish(realtime.Event{Op: op, Namespace: h.namespace, Keys: keys})
}

func sortedKeys(values map[string]any) []string {
	return slices.Sorted(maps.Keys(values))
}
