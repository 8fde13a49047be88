// Package service holds the operations API handlers and the CLI depend on.
// Transport concerns stay in the callers.
package service

import (
	"time"

	"github.com/Resinat/subdecode/internal/buildinfo"
)

// SystemInfo contains version and runtime information.
type SystemInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime string    `json:"build_time"`
	StartedAt time.Time `json:"started_at"`
}

// SystemService provides system-level operations.
type SystemService interface {
	GetSystemInfo() SystemInfo
}

// MemorySystemService is a SystemService backed by fixed in-memory state.
type MemorySystemService struct {
	info SystemInfo
}

// NewMemorySystemService creates a MemorySystemService with the given info.
func NewMemorySystemService(info SystemInfo) *MemorySystemService {
	return &MemorySystemService{info: info}
}

// CurrentSystemInfo returns the build info of this binary, starting now.
func CurrentSystemInfo() SystemInfo {
	return SystemInfo{
		Version:   buildinfo.Version,
		GitCommit: buildinfo.GitCommit,
		BuildTime: buildinfo.BuildTime,
		StartedAt: time.Now().UTC(),
	}
}

func (s *MemorySystemService) GetSystemInfo() SystemInfo {
	return s.info
}
