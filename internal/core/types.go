package core

import (
	"time"
)

// RiskLevel is an ordered safety tier. Higher values are more protective.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{"safe", "low", "medium", "high", "critical"}

func (r RiskLevel) String() string {
	if r < RiskSafe || r > RiskCritical {
		return "invalid"
	}
	return riskNames[r]
}

// FileType is the coarse content category of a file.
type FileType int

const (
	TypeUnknown FileType = iota
	TypeSource
	TypeDatabase
	TypeArchive
	TypeMedia
	TypeLog
	TypeConfig
	TypeBinary
	TypeDocument
	TypeArtifact
)

var typeNames = [...]string{
	"unknown", "source", "database", "archive", "media",
	"log", "config", "binary", "document", "artifact",
}

func (t FileType) String() string {
	if t < TypeUnknown || t > TypeArtifact {
		return "invalid"
	}
	return typeNames[t]
}

// GitStatus describes a path's state relative to its owning repository.
type GitStatus int

const (
	GitNotInRepo GitStatus = iota
	GitUntracked
	GitIgnored
	GitTracked
	GitModified
	// GitUnverified means the owning repository could not be read.
	GitUnverified
)

var gitNames = [...]string{"none", "untracked", "ignored", "tracked", "modified", "unverified"}

func (g GitStatus) String() string {
	if g < GitNotInRepo || g > GitUnverified {
		return "invalid"
	}
	return gitNames[g]
}

// FileRecord is a scanned file (or artifact directory) with its computed risk.
// Records are values; the selection state lives in the selection controller.
type FileRecord struct {
	Path       string
	Size       int64
	ModTime    time.Time
	AccessTime time.Time
	IsDir      bool

	Tracked bool
	Git     GitStatus
	Type    FileType

	Risk   RiskLevel
	Reason string

	// Plugin is the name of the plugin that produced the record.
	Plugin string
}

// Age returns how long ago the record was last modified.
func (r FileRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.ModTime)
}
