// Package errors - optional Sentry telemetry integration.
//
// Telemetry is entirely opt-in: unless SetTelemetryReporter is called
// (the enhance command does this only when a Sentry DSN is configured),
// Build() never touches the network and the fast path in errors.go is
// taken.
package errors

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/getsentry/sentry-go"
)

func init() {
	hasActiveReporting.Store(false)
}

// TelemetryReporter reports enhanced errors to an external telemetry system.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled.
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// shouldReportToSentry filters out operational errors that are not code bugs.
func shouldReportToSentry(ee *EnhancedError) bool {
	// Validation and configuration errors are user/input mistakes, not
	// pipeline bugs, per spec.md §7's "Non-finite samples ... are not an
	// error" framing: only genuinely unexpected failures go to telemetry.
	switch ee.Category {
	case CategoryValidation, CategoryConfiguration:
		return false
	}
	return true
}

// ReportError reports an enhanced error to Sentry.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	if !shouldReportToSentry(ee) {
		ee.MarkReported()
		return
	}

	errorTitle := generateErrorTitle(ee)
	message := fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error())

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.Context {
			scope.SetContext(key, map[string]any{"value": value})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: errorTitle, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

func generateErrorTitle(ee *EnhancedError) string {
	operation, hasOperation := ee.Context["operation"].(string)

	var titleParts []string
	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}
	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}
	if hasOperation && operation != "" {
		if operationTitle := formatOperationForTitle(operation); operationTitle != "" {
			titleParts = append(titleParts, operationTitle)
		}
	}
	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(titleParts, " ")
}

func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryInference:
		return "Inference Error"
	case CategoryProcessing:
		return "Processing Error"
	case CategoryOutput:
		return "Output Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryWorker:
		return "Worker Pool Error"
	case CategoryTimeout:
		return "Timeout Error"
	case CategoryRetry:
		return "Retry Exhausted Error"
	default:
		return string(category)
	}
}

func formatOperationForTitle(operation string) string {
	formatted := strings.ReplaceAll(operation, "_", " ")
	words := strings.Fields(formatted)
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryInference, CategoryWorker:
		return sentry.LevelError
	case CategoryProcessing, CategoryOutput:
		return sentry.LevelError
	case CategoryFileIO, CategoryTimeout:
		return sentry.LevelWarning
	case CategoryRetry:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

// Global telemetry reporter (nil if telemetry is disabled).
var globalTelemetryReporter TelemetryReporter

var (
	hasActiveReporting atomic.Bool
	reporterMu          sync.RWMutex
)

// SetTelemetryReporter sets the global telemetry reporter.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	globalTelemetryReporter = reporter
	reporterMu.Unlock()
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter.
func GetTelemetryReporter() TelemetryReporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return globalTelemetryReporter
}

// reportToTelemetry reports an error to the configured telemetry system, if any.
func reportToTelemetry(ee *EnhancedError) {
	if !hasActiveReporting.Load() {
		return
	}
	reporterMu.RLock()
	reporter := globalTelemetryReporter
	reporterMu.RUnlock()
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}
