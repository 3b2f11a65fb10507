// Package httpapi serves the read-mostly JSON API: tenant stats, clusters,
// digests, source management, and item previews. Every tenant-scoped route
// takes the tenant slug in the path; there is no cross-tenant view.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/digest"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/reader"
	subscriptionschema "github.com/CodesWhat/rss-wrangler-sub003/schema"
)

const (
	defaultClusterLimit = 50
	maxClusterLimit     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool    *db.Pool
	digests *digest.Service
	logger  zerolog.Logger
	opts    Options
}

func NewServer(pool *db.Pool, digests *digest.Service, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:    pool,
		digests: digests,
		logger:  logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("rollup api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("rollup api server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/sources", s.handleAddSource)

	tenant := api.Group("/tenants/:tenant")
	tenant.GET("/stats", s.handleStats)
	tenant.GET("/sources", s.handleSources)
	tenant.GET("/clusters", s.handleClusters)
	tenant.GET("/clusters/:cluster_id", s.handleClusterDetail)
	tenant.POST("/digests", s.handleGenerateDigest)
	tenant.GET("/digests", s.handleDigests)
	tenant.GET("/digests/:digest_id", s.handleDigestDetail)
	tenant.GET("/items/:item_id/preview", s.handleItemPreview)
	tenant.POST("/clusters/:cluster_id/read-state", s.handleSetReadState)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

// resolveTenant maps the :tenant path param to a tenant row.
func (s *Server) resolveTenant(c echo.Context) (*db.Tenant, error) {
	slug := strings.TrimSpace(c.Param("tenant"))
	if slug == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "tenant is required")
	}
	tenant, err := db.TenantBySlug(c.Request().Context(), s.pool, slug)
	if db.IsNoRows(err) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.pool.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check database ping failed")
		return internalError(c, "Database unreachable")
	}
	return success(c, map[string]any{
		"service": "rollup",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	stats, err := db.StatsForTenant(c.Request().Context(), s.pool, tenant.TenantID)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant", tenant.Slug).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleSources(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	rows, err := db.ListSourceStatus(c.Request().Context(), s.pool, tenant.TenantID)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant", tenant.Slug).Msg("query sources failed")
		return internalError(c, "Failed to load sources")
	}
	return success(c, map[string]any{"items": rows})
}

func (s *Server) handleAddSource(c echo.Context) error {
	body, err := readBody(c, 64<<10)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	sub, err := subscriptionschema.ValidateSourceSubscription(body)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	ctx := c.Request().Context()
	tenant, err := db.TenantBySlug(ctx, s.pool, sub.Tenant)
	if db.IsNoRows(err) {
		return failNotFound(c, "Tenant not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("tenant", sub.Tenant).Msg("resolve tenant failed")
		return internalError(c, "Failed to resolve tenant")
	}

	title := ""
	if sub.Title != nil {
		title = *sub.Title
	}
	weightName := ""
	if sub.Weight != nil {
		weightName = *sub.Weight
	}
	weight, err := db.WeightFromName(weightName)
	if err != nil {
		return failValidation(c, map[string]string{"weight": err.Error()})
	}

	sourceID, err := db.InsertSource(ctx, s.pool, tenant.TenantID, sub.FeedURL, title, sub.SiteURL, weight, sub.Folder)
	if err != nil {
		s.logger.Error().Err(err).Str("feed_url", sub.FeedURL).Msg("insert source failed")
		return internalError(c, "Failed to add source")
	}
	if sourceID == 0 {
		return fail(c, http.StatusConflict, "Source already subscribed", nil)
	}
	return successWithStatus(c, http.StatusCreated, map[string]any{"source_id": sourceID})
}

func (s *Server) handleClusters(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultClusterLimit, 1, maxClusterLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	hours, err := parsePositiveInt(c.QueryParam("hours"), 72, 1, 24*30)
	if err != nil {
		return failValidation(c, map[string]string{"hours": err.Error()})
	}

	since := globaltime.UTC().Add(-time.Duration(hours) * time.Hour)
	clusters, err := db.RecentClusters(c.Request().Context(), s.pool, tenant.TenantID, since, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant", tenant.Slug).Msg("query clusters failed")
		return internalError(c, "Failed to load clusters")
	}
	return success(c, map[string]any{
		"items": clusters,
		"since": since,
		"limit": limit,
	})
}

func (s *Server) handleClusterDetail(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	clusterID, err := strconv.ParseInt(strings.TrimSpace(c.Param("cluster_id")), 10, 64)
	if err != nil {
		return failValidation(c, map[string]string{"cluster_id": "must be an integer"})
	}

	ctx := c.Request().Context()
	members, err := db.ClusterMembers(ctx, s.pool, clusterID)
	if err != nil {
		s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("query cluster members failed")
		return internalError(c, "Failed to load cluster")
	}
	if len(members) == 0 {
		return failNotFound(c, "Cluster not found")
	}
	return success(c, map[string]any{
		"tenant":  tenant.Slug,
		"members": members,
	})
}

func (s *Server) handleGenerateDigest(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}
	if s.digests == nil {
		return internalError(c, "Digest service unavailable")
	}

	result, err := s.digests.Generate(c.Request().Context(), tenant.TenantID, digest.TriggerManual)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant", tenant.Slug).Msg("digest generation failed")
		return internalError(c, "Failed to generate digest")
	}
	if result == nil {
		return fail(c, http.StatusConflict, "Nothing to digest", nil)
	}
	return successWithStatus(c, http.StatusCreated, map[string]any{
		"digest_id":    result.DigestID,
		"digest_uuid":  result.DigestUUID,
		"trigger":      result.Trigger,
		"generated_at": result.GeneratedAt,
		"entry_count":  len(result.Entries),
		"markdown":     result.Markdown,
	})
}

func (s *Server) handleDigests(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), 20, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	digests, err := db.ListDigests(c.Request().Context(), s.pool, tenant.TenantID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant", tenant.Slug).Msg("query digests failed")
		return internalError(c, "Failed to load digests")
	}
	return success(c, map[string]any{"items": digests})
}

func (s *Server) handleDigestDetail(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	digestID, err := strconv.ParseInt(strings.TrimSpace(c.Param("digest_id")), 10, 64)
	if err != nil {
		return failValidation(c, map[string]string{"digest_id": "must be an integer"})
	}

	detail, err := db.DigestByID(c.Request().Context(), s.pool, tenant.TenantID, digestID)
	if db.IsNoRows(err) {
		return failNotFound(c, "Digest not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("digest_id", digestID).Msg("query digest failed")
		return internalError(c, "Failed to load digest")
	}
	return success(c, detail)
}

const selectItemForPreviewSQL = `
SELECT canonical_url, title
FROM rollup.items
WHERE item_id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

func (s *Server) handleItemPreview(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.ParseInt(strings.TrimSpace(c.Param("item_id")), 10, 64)
	if err != nil {
		return failValidation(c, map[string]string{"item_id": "must be an integer"})
	}

	ctx := c.Request().Context()
	var canonicalURL, title string
	if err := s.pool.QueryRow(ctx, selectItemForPreviewSQL, itemID, tenant.TenantID).Scan(&canonicalURL, &title); err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Item not found")
		}
		s.logger.Error().Err(err).Int64("item_id", itemID).Msg("query item failed")
		return internalError(c, "Failed to load item")
	}

	text, err := reader.FetchText(ctx, canonicalURL, title)
	if err != nil {
		s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("preview extraction failed")
		return fail(c, http.StatusBadGateway, "Preview extraction failed", nil)
	}

	preview, truncated := reader.TruncateText(text, 5000)
	return success(c, map[string]any{
		"item_id":   itemID,
		"title":     title,
		"url":       canonicalURL,
		"text":      preview,
		"truncated": truncated,
	})
}

// handleSetReadState updates the tenant's read/saved/not-interested markers
// for one cluster. Absent fields keep their stored value.
func (s *Server) handleSetReadState(c echo.Context) error {
	tenant, err := s.resolveTenant(c)
	if err != nil {
		return err
	}

	clusterID, err := strconv.ParseInt(strings.TrimSpace(c.Param("cluster_id")), 10, 64)
	if err != nil {
		return failValidation(c, map[string]string{"cluster_id": "must be an integer"})
	}

	body, err := readBody(c, 4<<10)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	markers, err := parseReadMarkers(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	ctx := c.Request().Context()
	owned, err := db.ClusterOwnedBy(ctx, s.pool, tenant.TenantID, clusterID)
	if err != nil {
		s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("cluster ownership check failed")
		return internalError(c, "Failed to load cluster")
	}
	if !owned {
		return failNotFound(c, "Cluster not found")
	}

	state, err := db.SetReadMarkers(ctx, s.pool, tenant.TenantID, clusterID, markers)
	if err != nil {
		s.logger.Error().Err(err).Int64("cluster_id", clusterID).Msg("set read state failed")
		return internalError(c, "Failed to update read state")
	}
	return success(c, map[string]any{
		"cluster_id":     clusterID,
		"read":           state.Read,
		"saved":          state.Saved,
		"not_interested": state.NotInterested,
		"updated_at":     state.UpdatedAt,
	})
}

// parseReadMarkers decodes a read-state request body. Every field is
// optional, but an empty update is rejected.
func parseReadMarkers(body []byte) (db.ReadMarkers, error) {
	var payload struct {
		Read          *bool `json:"read"`
		Saved         *bool `json:"saved"`
		NotInterested *bool `json:"not_interested"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return db.ReadMarkers{}, fmt.Errorf("must be a JSON object")
	}
	if payload.Read == nil && payload.Saved == nil && payload.NotInterested == nil {
		return db.ReadMarkers{}, fmt.Errorf("at least one of read, saved, not_interested is required")
	}
	return db.ReadMarkers{
		Read:          payload.Read,
		Saved:         payload.Saved,
		NotInterested: payload.NotInterested,
	}, nil
}

func readBody(c echo.Context, limit int64) ([]byte, error) {
	body := c.Request().Body
	if body == nil {
		return nil, fmt.Errorf("request body is empty")
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("request body exceeds %d bytes", limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}
	return data, nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
