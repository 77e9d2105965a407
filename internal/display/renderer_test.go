package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"tenant-backup/internal/restore"
	"tenant-backup/internal/validate"
)

func sampleResult() *validate.ValidationResult {
	return &validate.ValidationResult{
		Valid: false,
		Errors: []validate.ValidationError{
			{Kind: validate.ErrorKindSystemVersion, Message: "snapshot was produced by system version 1.0.0, running version is 2.4.1"},
		},
		Warnings: []validate.ValidationWarning{
			{Kind: validate.WarningKindPerformance, Severity: validate.SeverityLow, Message: "large snapshot"},
		},
		Report: &validate.ValidationReport{
			Breakdown:         []validate.TableBreakdown{{Table: "invoices", Rows: 100, Action: "insert"}},
			TotalInserts:      100,
			EstimatedDuration: 2 * time.Second,
			Risk:              validate.RiskHigh,
			Recommendation:    "Resolve every validation error before requesting a restore.",
		},
	}
}

func TestRenderValidation_Text(t *testing.T) {
	var output bytes.Buffer
	renderer := NewRendererWithWriter(&output, FormatText)

	if err := renderer.RenderValidation(sampleResult()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text := output.String()
	for _, want := range []string{"failed validation", "system_version", "performance", "invoices", "Risk"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestRenderValidation_JSON(t *testing.T) {
	var output bytes.Buffer
	renderer := NewRendererWithWriter(&output, FormatJSON)

	if err := renderer.RenderValidation(sampleResult()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded validate.ValidationResult
	if err := json.Unmarshal(output.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Valid || len(decoded.Errors) != 1 {
		t.Errorf("JSON round trip lost content: %+v", decoded)
	}
}

func TestRenderRestore_Failure(t *testing.T) {
	var output bytes.Buffer
	renderer := NewRendererWithWriter(&output, FormatText)

	err := renderer.RenderRestore(&restore.Result{
		Success:  false,
		Mode:     restore.ModeDryRun,
		Duration: time.Second,
		Error:    "constraint violation in simulation",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text := output.String()
	if !strings.Contains(text, "Restore failed") || !strings.Contains(text, "constraint violation") {
		t.Errorf("Expected failure output, got:\n%s", text)
	}
}

func TestRenderRestore_DryRunSuccess(t *testing.T) {
	var output bytes.Buffer
	renderer := NewRendererWithWriter(&output, FormatText)

	err := renderer.RenderRestore(&restore.Result{
		Success:         true,
		Mode:            restore.ModeDryRun,
		RecordsRestored: 120,
		Duration:        time.Second,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(output.String(), "Dry run succeeded") {
		t.Errorf("Expected dry run notice, got:\n%s", output.String())
	}
}
