package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"resource-availability-backend/internal/datasource"
	"resource-availability-backend/internal/feed"
	"resource-availability-backend/internal/store"
)

// Options configure the handlers that are not plain store lookups.
type Options struct {
	// WebhookToken, when set, must be sent as X-Feed-Token on POST /api/events.
	WebhookToken string
	// Location is used to read upstream timestamps without an offset.
	Location *time.Location
	// UpdateBuffer is the number of row operations buffered per update stream.
	UpdateBuffer int
	// KeepAlive is the interval of SSE keep-alive comments.
	KeepAlive time.Duration
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	sessions *datasource.Registry
	deps     datasource.Deps
	hub      *feed.Hub
	cache    *cache.Cache
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewHandler creates a new API handler. Every field of deps is required.
func NewHandler(s store.Store, webpushOptions *webpush.Options, sessions *datasource.Registry, deps datasource.Deps, responseCache *cache.Cache, opts Options, logger logrus.FieldLogger) *Handler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = 256
	}
	if responseCache == nil {
		responseCache = cache.New(cache.NoExpiration, 10*time.Minute)
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 30 * time.Second
	}
	return &Handler{
		store:    s,
		webpush:  webpushOptions,
		sessions: sessions,
		deps:     deps,
		hub:      deps.Hub,
		cache:    responseCache,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}
