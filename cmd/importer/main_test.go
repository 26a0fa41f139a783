package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"foodcatalog_api/pkg/logger"
)

func TestReportRunErrorTreatsCancellationAsInterruption(t *testing.T) {
	var buf strings.Builder
	log := logger.NewLogger(&buf, "[run]")

	reportRunError(log, fmt.Errorf("importing product data: %w", context.Canceled))

	out := buf.String()
	if strings.Contains(out, "CRITICAL") {
		t.Errorf("cancellation logged as a failure:\n%s", out)
	}
	if !strings.Contains(out, "interrupted") {
		t.Errorf("cancellation not logged as an interruption:\n%s", out)
	}
}

func TestReportRunErrorLogsFailuresAsCritical(t *testing.T) {
	var buf strings.Builder
	log := logger.NewLogger(&buf, "[run]")

	reportRunError(log, errors.New("connection refused"))

	out := buf.String()
	if !strings.Contains(out, "CRITICAL") {
		t.Errorf("orchestration failure not logged as critical:\n%s", out)
	}
}
