package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestStringFieldsSkipsEmptyEntries(t *testing.T) {
	t.Parallel()

	fields := StringFields(
		StringField{Key: FieldProvider, Value: "gemini"},
		StringField{Key: "  ", Value: "ignored"},
		StringField{Key: FieldModel, Value: "   "},
		StringField{Key: " calendar_id ", Value: " primary "},
	)

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldProvider || fields[0].String != "gemini" {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Key != "calendar_id" || fields[1].String != "primary" {
		t.Fatalf("unexpected second field: %+v", fields[1])
	}
}

func TestWithAIFieldsSkipsEmptyValues(t *testing.T) {
	t.Parallel()

	base := zap.NewNop()
	if got := WithAIFields(base, "", ""); got != base {
		t.Fatalf("expected logger returned unchanged when both values are empty")
	}
	if got := WithAIFields(base, "gemini", "gemini-flash-latest"); got == base {
		t.Fatalf("expected a child logger when fields are present")
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	t.Parallel()

	if got := WithFields(nil); got == nil {
		t.Fatalf("expected non-nil logger")
	}

	base := zap.NewNop()
	if got := WithFields(base); got != base {
		t.Fatalf("expected logger returned unchanged when no fields supplied")
	}
}
