package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"fixam/internal/apperrors"
	"fixam/internal/config"
	"fixam/internal/domain"
	"fixam/internal/metrics"
	"fixam/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Strategy is the caching policy chosen for one outgoing read.
type Strategy int

const (
	StrategyNetworkOnly Strategy = iota
	StrategyImageCacheFirst
	StrategyCDNCacheFirst
	StrategyAppShell
	StrategyAPINetworkFirst
	StrategyNetworkFirst
)

func (s Strategy) String() string {
	switch s {
	case StrategyNetworkOnly:
		return "network-only"
	case StrategyImageCacheFirst:
		return "image-cache-first"
	case StrategyCDNCacheFirst:
		return "cdn-cache-first"
	case StrategyAppShell:
		return "app-shell"
	case StrategyAPINetworkFirst:
		return "api-network-first"
	default:
		return "network-first"
	}
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".avif": true,
}

// placeholderPNG is a 1x1 transparent PNG served when an image can be
// neither fetched nor found in cache.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Router classifies every outgoing read into a caching strategy and executes
// it against the named partitions.
type Router struct {
	static     domain.CacheStore
	api        domain.CacheStore
	image      domain.CacheStore
	client     domain.RoundTripper
	redis      *redis.Client
	cfg        config.AgentConfig
	cdnTimeout time.Duration
	logger     *zerolog.Logger
}

func NewRouter(redisClient *redis.Client, client domain.RoundTripper, cfg config.AgentConfig, logger *zerolog.Logger) *Router {
	timeout := time.Duration(cfg.CDNTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(models.DefaultCDNTimeout) * time.Second
	}
	return &Router{
		static:     NewRedisPartition(redisClient, PartitionStatic, cfg.CacheVersion),
		api:        NewRedisPartition(redisClient, PartitionAPI, cfg.CacheVersion),
		image:      NewRedisPartition(redisClient, PartitionImage, cfg.CacheVersion),
		client:     client,
		redis:      redisClient,
		cfg:        cfg,
		cdnTimeout: timeout,
		logger:     logger,
	}
}

// Classify picks the strategy for a request, first match wins.
func (r *Router) Classify(req *http.Request) Strategy {
	u := req.URL

	for _, pattern := range r.cfg.LiveOnlyPatterns {
		if strings.Contains(u.Path, pattern) {
			return StrategyNetworkOnly
		}
	}

	if imageExtensions[strings.ToLower(path.Ext(u.Path))] {
		return StrategyImageCacheFirst
	}

	for _, host := range r.cfg.CDNHosts {
		if strings.EqualFold(u.Host, host) {
			return StrategyCDNCacheFirst
		}
	}

	if r.isStaticAsset(u) || isNavigation(req) {
		return StrategyAppShell
	}

	for _, prefix := range r.cfg.APIPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return StrategyAPINetworkFirst
		}
	}

	return StrategyNetworkFirst
}

// Serve executes the request under its strategy and returns the response to
// hand back to the page.
func (r *Router) Serve(ctx context.Context, req *http.Request) (*models.CachedResponse, error) {
	switch r.Classify(req) {
	case StrategyNetworkOnly:
		return r.networkOnly(ctx, req)
	case StrategyImageCacheFirst:
		return r.cacheFirst(ctx, req, r.image, true, 0, r.imageFallback)
	case StrategyCDNCacheFirst:
		return r.cacheFirst(ctx, req, r.static, false, r.cdnTimeout, nil)
	case StrategyAppShell:
		return r.cacheFirst(ctx, req, r.static, true, 0, r.navigationFallback(req))
	default:
		return r.networkFirst(ctx, req, r.api)
	}
}

func (r *Router) networkOnly(ctx context.Context, req *http.Request) (*models.CachedResponse, error) {
	resp, err := r.fetch(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// cacheFirst serves from the partition when possible and falls back to the
// network, writing successful fetches back. The fallback, when set, is the
// answer of last resort.
func (r *Router) cacheFirst(ctx context.Context, req *http.Request, store domain.CacheStore, stripQuery bool, timeout time.Duration, fallback func(ctx context.Context) (*models.CachedResponse, error)) (*models.CachedResponse, error) {
	key := normalizeKey(req.URL, stripQuery)

	cached, err := store.Get(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	if cached != nil {
		metrics.IncCache(store.Name(), "hit")
		return cached, nil
	}
	metrics.IncCache(store.Name(), "miss")

	resp, err := r.fetch(ctx, req, timeout)
	if err == nil && cacheable(req, resp) {
		if putErr := store.Put(ctx, key, resp); putErr != nil {
			r.logger.Warn().Err(putErr).Str("key", key).Msg("cache write failed")
		}
	}
	if err == nil {
		return resp, nil
	}

	if fallback != nil {
		return fallback(ctx)
	}
	return nil, err
}

// networkFirst prefers live data, caches successful GETs, and degrades to
// the last-known-good entry when the network is gone.
func (r *Router) networkFirst(ctx context.Context, req *http.Request, store domain.CacheStore) (*models.CachedResponse, error) {
	key := normalizeKey(req.URL, false)

	resp, err := r.fetch(ctx, req, 0)
	if err == nil {
		if cacheable(req, resp) {
			if putErr := store.Put(ctx, key, resp); putErr != nil {
				r.logger.Warn().Err(putErr).Str("key", key).Msg("cache write failed")
			}
		}
		return resp, nil
	}

	cached, cacheErr := store.Get(ctx, key)
	if cacheErr != nil {
		r.logger.Warn().Err(cacheErr).Str("key", key).Msg("cache read failed")
	}
	if cached != nil {
		metrics.IncCache(store.Name(), "hit")
		return cached, nil
	}
	metrics.IncCache(store.Name(), "miss")

	return nil, err
}

func (r *Router) fetch(ctx context.Context, req *http.Request, timeout time.Duration) (*models.CachedResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := r.client.Do(req.Clone(ctx))
	if err != nil {
		return nil, &apperrors.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.NetworkError{Cause: err}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &models.CachedResponse{
		Status:   resp.StatusCode,
		Headers:  headers,
		Body:     body,
		StoredAt: time.Now(),
	}, nil
}

func (r *Router) imageFallback(ctx context.Context) (*models.CachedResponse, error) {
	return &models.CachedResponse{
		Status:  http.StatusOK,
		Headers: map[string]string{"Content-Type": "image/png"},
		Body:    placeholderPNG,
	}, nil
}

// navigationFallback serves the cached root document so the app shell still
// loads offline; non-navigation requests get no fallback.
func (r *Router) navigationFallback(req *http.Request) func(ctx context.Context) (*models.CachedResponse, error) {
	if !isNavigation(req) {
		return nil
	}
	rootURL := *req.URL
	rootURL.Path = "/"
	rootURL.RawQuery = ""
	key := normalizeKey(&rootURL, true)

	return func(ctx context.Context) (*models.CachedResponse, error) {
		cached, err := r.static.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			return nil, &apperrors.NetworkError{Cause: fmt.Errorf("offline and no cached app shell")}
		}
		metrics.IncCache(r.static.Name(), "hit")
		return cached, nil
	}
}

// Precache fetches every configured static asset into the app-shell
// partition. Best effort: a failed asset is logged and skipped.
func (r *Router) Precache(ctx context.Context, origin string) {
	for _, asset := range r.cfg.StaticAssets {
		u, err := url.Parse(origin + asset)
		if err != nil {
			r.logger.Warn().Err(err).Str("asset", asset).Msg("invalid precache asset")
			continue
		}
		req := &http.Request{Method: http.MethodGet, URL: u, Header: http.Header{}}
		resp, err := r.fetch(ctx, req, 0)
		if err != nil || resp.Status != http.StatusOK {
			r.logger.Warn().Err(err).Str("asset", asset).Msg("precache fetch failed")
			continue
		}
		if err := r.static.Put(ctx, normalizeKey(u, true), resp); err != nil {
			r.logger.Warn().Err(err).Str("asset", asset).Msg("precache store failed")
		}
	}
}

// Activate deletes every cache partition whose name carries a different
// version, returning how many keys were removed.
func (r *Router) Activate(ctx context.Context) (int, error) {
	return CleanupVersions(ctx, r.redis, r.PartitionNames())
}

// ClearAll wipes every active partition.
func (r *Router) ClearAll(ctx context.Context) error {
	for _, store := range []domain.CacheStore{r.static, r.api, r.image} {
		if err := store.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PartitionNames lists the active versioned partition names.
func (r *Router) PartitionNames() []string {
	return []string{r.static.Name(), r.api.Name(), r.image.Name()}
}

func (r *Router) isStaticAsset(u *url.URL) bool {
	for _, asset := range r.cfg.StaticAssets {
		if u.Path == asset {
			return true
		}
	}
	return false
}

// isNavigation approximates a page navigation: a GET asking for HTML.
func isNavigation(req *http.Request) bool {
	return req.Method == http.MethodGet &&
		strings.Contains(req.Header.Get("Accept"), "text/html")
}

// cacheable allows only successful GET responses into the cache.
func cacheable(req *http.Request, resp *models.CachedResponse) bool {
	return req.Method == http.MethodGet && resp.Status == http.StatusOK
}

// normalizeKey builds the cache key: origin plus path, query stripped where
// the strategy treats the URL as an immutable asset.
func normalizeKey(u *url.URL, stripQuery bool) string {
	key := u.Scheme + "://" + u.Host + u.Path
	if !stripQuery && u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
