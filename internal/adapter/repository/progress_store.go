package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
)

const (
	progressKeyPrefix = "persona_analysis_progress:"
	anonymousScope    = "anonymous"
)

// ProgressStoreFunc adapts a constructor to domainrepo.ProgressStoreProvider
type ProgressStoreFunc func(scope string) domainrepo.ProgressStore

// ForScope implements domainrepo.ProgressStoreProvider
func (f ProgressStoreFunc) ForScope(scope string) domainrepo.ProgressStore {
	return f(scope)
}

func normalizeScope(scope string) string {
	if scope == "" {
		return anonymousScope
	}
	return scope
}

func progressKey(scope string) string {
	return progressKeyPrefix + normalizeScope(scope)
}

func maxAgeOrDefault(maxAge time.Duration) time.Duration {
	if maxAge <= 0 {
		return entities.DefaultProgressMaxAge
	}
	return maxAge
}

func encodeProgress(p *entities.JobProgress) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("progress cannot be nil")
	}
	if p.SavedAtEpochMillis == 0 {
		p.Touch(time.Now())
	}
	return json.Marshal(p)
}

// decodeProgress returns nil for snapshots older than maxAge
func decodeProgress(data []byte, now time.Time, maxAge time.Duration) (*entities.JobProgress, error) {
	var p entities.JobProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrCorruptProgress, err)
	}
	if p.Expired(now, maxAge) {
		return nil, nil
	}
	return &p, nil
}
