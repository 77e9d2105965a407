package schema

import (
	"testing"
)

func TestRedactRemovesSecretFields(t *testing.T) {
	redactor := NewDefaultRedactor()

	row := map[string]interface{}{
		"id":            int64(1),
		"name":          "Main Branch",
		"password_hash": "x",
		"api_token":     "y",
		"refresh_token": "z",
	}

	redacted := redactor.Redact("branches", row)

	if _, ok := redacted["password_hash"]; ok {
		t.Error("Expected password_hash to be removed")
	}
	if _, ok := redacted["api_token"]; ok {
		t.Error("Expected api_token to be removed")
	}
	if _, ok := redacted["refresh_token"]; ok {
		t.Error("Expected refresh_token to be removed")
	}
	if redacted["name"] != "Main Branch" {
		t.Error("Expected non-secret field to survive redaction")
	}
}

func TestRedactDropsMembershipEmail(t *testing.T) {
	redactor := NewDefaultRedactor()

	row := map[string]interface{}{
		"id":         int64(9),
		"user_id":    int64(12),
		"company_id": int64(3),
		"email":      "someone@example.com",
		"role":       "owner",
	}

	redacted := redactor.Redact("company_users", row)

	if _, ok := redacted["email"]; ok {
		t.Error("Expected company_users.email to be dropped")
	}
	if redacted["user_id"] != int64(12) {
		t.Error("Expected relational user id to be kept")
	}
}

func TestRedactEmailKeptOnOtherTables(t *testing.T) {
	redactor := NewDefaultRedactor()

	row := map[string]interface{}{"id": int64(1), "email": "billing@customer.example"}
	redacted := redactor.Redact("customers", row)

	if redacted["email"] != "billing@customer.example" {
		t.Error("Customer contact email is business data and must survive")
	}
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	redactor := NewDefaultRedactor()

	row := map[string]interface{}{"id": int64(1), "password_hash": "x"}
	redactor.Redact("users", row)

	if _, ok := row["password_hash"]; !ok {
		t.Error("Redact must not mutate its input row")
	}
}
