package audit

import (
	"context"
	"errors"
	"log/slog"
	"maps"

	"github.com/mssola/useragent"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

// Store is the append-only persistence for entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, int, error)
}

// Log is the audit sink written to by the permission manager and the
// verification pipeline. Entries are persisted synchronously; streaming is
// best effort.
type Log struct {
	store    Store
	streamer Streamer
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Log)

func WithLogger(l *slog.Logger) Option {
	return func(a *Log) { a.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(a *Log) { a.metrics = m }
}

// WithStreamer publishes each appended entry. Leave unset when the store
// relays entries itself through an outbox.
func WithStreamer(s Streamer) Option {
	return func(a *Log) { a.streamer = s }
}

func NewLog(store Store, opts ...Option) *Log {
	l := &Log{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record stamps entry with a fresh ID, the request time and client metadata,
// then appends it. The returned error is for the caller to report; callers
// must not roll back their own effect because of it.
func (l *Log) Record(ctx context.Context, entry Entry) (Entry, error) {
	if !entry.Action.IsValid() {
		return Entry{}, dErrors.New(dErrors.CodeInvalidInput, "invalid audit action")
	}
	if entry.ActorDID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeInvalidInput, "audit entry requires an acting DID")
	}

	entry.ID = id.NewAuditEntryID()
	entry.Timestamp = requestcontext.Now(ctx)
	if entry.Client == nil {
		entry.Client = clientFromContext(ctx)
	}
	if entry.Details != nil {
		entry.Details = maps.Clone(entry.Details)
	}

	if err := l.store.Append(ctx, entry); err != nil {
		l.metrics.IncAppendFailures()
		l.logger.ErrorContext(ctx, "CRITICAL: audit append failed",
			"action", entry.Action,
			"actor_did", entry.ActorDID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	l.metrics.IncAppended(entry.Action)

	if l.streamer != nil {
		if err := l.streamer.Publish(ctx, []Entry{entry}); err != nil {
			l.metrics.IncStreamFailures()
			l.logger.WarnContext(ctx, "audit stream publish failed",
				"entry_id", entry.ID,
				"error", err,
			)
		}
	}
	return entry, nil
}

// Query returns one page of entries matching filter, newest first.
func (l *Log) Query(ctx context.Context, filter Filter) (*Page, error) {
	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	entries, total, err := l.store.Query(ctx, filter)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeDependencyFailure, "audit store unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit log")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return &Page{Entries: entries, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func clientFromContext(ctx context.Context) *ClientInfo {
	ip := requestcontext.ClientIP(ctx)
	ua := requestcontext.UserAgent(ctx)
	if ip == "" && ua == "" {
		return nil
	}
	info := &ClientInfo{IP: ip, UserAgent: ua}
	if ua != "" {
		parsed := useragent.New(ua)
		info.Browser, info.BrowserVersion = parsed.Browser()
		info.OS = parsed.OS()
		info.Mobile = parsed.Mobile()
		info.Bot = parsed.Bot()
	}
	return info
}
