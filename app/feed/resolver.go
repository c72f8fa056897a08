package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type ResolutionErrorKind string

const (
	UnknownFormat ResolutionErrorKind = "unknown_format"
	NotFound      ResolutionErrorKind = "not_found"
	LookupFailed  ResolutionErrorKind = "lookup_failed"
)

type ResolutionError struct {
	Identifier string
	Kind       ResolutionErrorKind
	Err        error
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case UnknownFormat:
		return fmt.Sprintf("unsupported channel identifier %q (expected @handle or UC... id)", e.Identifier)
	case NotFound:
		return fmt.Sprintf("no channel found for %q", e.Identifier)
	default:
		return fmt.Sprintf("failed to look up channel %q: %v", e.Identifier, e.Err)
	}
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

var ErrSearchUnavailable = errors.New("resolving @handles requires a YouTube API key")

// ChannelSearcher looks up channels matching a free text query, best match
// first.
type ChannelSearcher interface {
	SearchChannel(ctx context.Context, query string) ([]ChannelID, error)
}

type Resolver struct {
	searcher ChannelSearcher
}

// NewResolver creates a Resolver. searcher may be nil when only canonical
// ids are configured; resolving a handle then fails with LookupFailed.
func NewResolver(searcher ChannelSearcher) *Resolver {
	return &Resolver{searcher: searcher}
}

func (r *Resolver) CanSearch() bool {
	return r.searcher != nil
}

func IsHandle(identifier string) bool {
	return strings.HasPrefix(strings.TrimSpace(identifier), "@")
}

func (r *Resolver) Resolve(ctx context.Context, identifier string) (ChannelID, error) {
	identifier = strings.TrimSpace(identifier)

	switch {
	case strings.HasPrefix(identifier, "UC"):
		return ChannelID(identifier), nil

	case strings.HasPrefix(identifier, "@"):
		if r.searcher == nil {
			return "", &ResolutionError{Identifier: identifier, Kind: LookupFailed, Err: fmt.Errorf("no channel search backend configured")}
		}

		// Search ranking decides, there is no exact handle lookup.
		results, err := r.searcher.SearchChannel(ctx, strings.TrimPrefix(identifier, "@"))
		if err != nil {
			return "", &ResolutionError{Identifier: identifier, Kind: LookupFailed, Err: err}
		}
		if len(results) == 0 || results[0] == "" {
			return "", &ResolutionError{Identifier: identifier, Kind: NotFound}
		}

		slog.Debug("Handle resolved", "handle", identifier, "channel", results[0])
		return results[0], nil

	default:
		return "", &ResolutionError{Identifier: identifier, Kind: UnknownFormat}
	}
}

// ResolveAll resolves every source in order. Failed sources are logged and
// dropped; duplicates of an already resolved channel are skipped.
func (r *Resolver) ResolveAll(ctx context.Context, configs []SourceConfig) []Source {
	sources := make([]Source, 0, len(configs))
	seen := make(map[ChannelID]bool, len(configs))

	for _, sc := range configs {
		channelID, err := r.Resolve(ctx, sc.ID)
		if err != nil {
			slog.Error("Failed to resolve channel, skipping", "channel", sc.ID, "kind", "resolution", "error", err)
			continue
		}

		if seen[channelID] {
			slog.Warn("Channel configured more than once, skipping duplicate", "channel", sc.ID, "channel_id", channelID)
			continue
		}
		seen[channelID] = true

		sources = append(sources, Source{
			Identifier: sc.ID,
			ChannelID:  channelID,
			Filters:    sc.Filters,
		})
	}

	return sources
}
