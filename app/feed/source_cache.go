package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SourceCache holds the channels watched for the lifetime of the process.
// Identifiers are resolved once by Run; afterwards the cache is read-only.
type SourceCache struct {
	identifiers []string
	sourcesFile string
	resolver    *Resolver
	sources     []Source
	mu          sync.RWMutex
}

func NewSourceCache(identifiers []string, sourcesFile string, resolver *Resolver) *SourceCache {
	return &SourceCache{
		identifiers: identifiers,
		sourcesFile: sourcesFile,
		resolver:    resolver,
	}
}

func (sc *SourceCache) Run(ctx context.Context) error {
	configs, err := sc.LoadConfigs()
	if err != nil {
		return err
	}

	if !sc.resolver.CanSearch() {
		for _, config := range configs {
			if IsHandle(config.ID) {
				return fmt.Errorf("channel %s: %w", config.ID, ErrSearchUnavailable)
			}
		}
	}

	sources := sc.resolver.ResolveAll(ctx, configs)

	for _, source := range sources {
		slog.Debug("Channel registered", "channel", source.Identifier, "channel_id", source.ChannelID, "filters", len(source.Filters))
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sources = sources

	return nil
}

// LoadConfigs merges the plain identifiers with the entries of the
// sources file, identifiers first.
func (sc *SourceCache) LoadConfigs() ([]SourceConfig, error) {
	configs := make([]SourceConfig, 0, len(sc.identifiers))
	for _, id := range sc.identifiers {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		configs = append(configs, SourceConfig{ID: id})
	}

	if sc.sourcesFile == "" {
		return configs, nil
	}

	fileConfigs, err := sc.parseSourcesFile(sc.sourcesFile)
	if err != nil {
		return nil, err
	}

	for i, fc := range fileConfigs {
		if err := validateSourceConfig(fc); err != nil {
			return nil, fmt.Errorf("invalid channel at index %d in %s: %w", i, sc.sourcesFile, err)
		}
	}

	return append(configs, fileConfigs...), nil
}

func (sc *SourceCache) GetSources() []Source {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sourcesCopy := make([]Source, len(sc.sources))
	copy(sourcesCopy, sc.sources)
	return sourcesCopy
}

func (sc *SourceCache) GetSourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.sources)
}

func (sc *SourceCache) parseSourcesFile(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Channels {
		file.Channels[i].ID = strings.TrimSpace(file.Channels[i].ID)
	}

	return file.Channels, nil
}

func validateSourceConfig(sc SourceConfig) error {
	if sc.ID == "" {
		return fmt.Errorf("channel id is required")
	}

	for i, filter := range sc.Filters {
		if !IsFilterField(filter.Field) {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
