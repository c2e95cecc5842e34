package services

import "requirement-analyzer/internal/models"

// Notifier shows transient messages to the user
type Notifier interface {
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	Info(format string, args ...interface{})
}

// ProgressFunc receives the coarse progress of a generation, 0 when idle
type ProgressFunc func(kind models.ArtifactKind, percent int)

// Generation progress milestones
const (
	ProgressStarted    = 10
	ProgressRequested  = 50
	ProgressProcessing = 75
	ProgressIdle       = 0
)

type quietNotifier struct{}

func (quietNotifier) Success(string, ...interface{}) {}
func (quietNotifier) Warning(string, ...interface{}) {}
func (quietNotifier) Error(string, ...interface{})   {}
func (quietNotifier) Info(string, ...interface{})    {}
