package confirmation

import (
	"bytes"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		phrase       string
		acknowledged bool
		wantErr      bool
	}{
		{"both present", "RESTORE", true, false},
		{"wrong phrase", "restore", true, true},
		{"empty phrase", "", true, true},
		{"missing acknowledgment", "RESTORE", false, true},
		{"both missing", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.phrase, tt.acknowledged)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check(%q, %v) error = %v, wantErr %v", tt.phrase, tt.acknowledged, err, tt.wantErr)
			}
		})
	}
}

func confirm(t *testing.T, input string, req Request) (bool, string) {
	t.Helper()

	var output bytes.Buffer
	service := NewServiceWithIO(strings.NewReader(input), &output)

	confirmed, err := service.ConfirmRestore(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return confirmed, output.String()
}

func TestConfirmRestore_PhraseAndAcknowledgment(t *testing.T) {
	confirmed, _ := confirm(t, "RESTORE\ny\n", Request{QueueID: 7, TenantName: "Acme Ltd", TotalRecords: 120})
	if !confirmed {
		t.Error("Expected confirmation with correct phrase and acknowledgment")
	}
}

func TestConfirmRestore_WrongPhraseBlocks(t *testing.T) {
	confirmed, output := confirm(t, "restore\n", Request{QueueID: 7, TenantName: "Acme Ltd"})
	if confirmed {
		t.Error("Expected a lowercase phrase to be rejected")
	}
	if !strings.Contains(output, "cancelled") {
		t.Errorf("Expected cancellation notice, got %q", output)
	}
}

func TestConfirmRestore_DeclinedAcknowledgmentBlocks(t *testing.T) {
	confirmed, _ := confirm(t, "RESTORE\nn\n", Request{QueueID: 7, TenantName: "Acme Ltd"})
	if confirmed {
		t.Error("Expected a declined acknowledgment to block the restore")
	}
}

func TestConfirmRestore_FlagSkipsSecondPrompt(t *testing.T) {
	confirmed, output := confirm(t, "RESTORE\n", Request{QueueID: 7, TenantName: "Acme Ltd", Acknowledged: true})
	if !confirmed {
		t.Error("Expected the acknowledgment flag to satisfy the second step")
	}
	if strings.Contains(output, "[y/N]") {
		t.Error("Expected no interactive acknowledgment prompt when the flag is set")
	}
}

func TestConfirmRestore_SummaryNamesTenant(t *testing.T) {
	_, output := confirm(t, "RESTORE\ny\n", Request{QueueID: 7, TenantName: "Acme Ltd", TotalRecords: 120})
	if !strings.Contains(output, "Acme Ltd") || !strings.Contains(output, "120") {
		t.Errorf("Expected the summary to show tenant and record count, got %q", output)
	}
}
