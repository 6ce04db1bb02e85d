package domain_test

import (
	"errors"
	"testing"
	"time"

	"bpmnstudio/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestParseDiagramID(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
		want *int64
	}{
		{"absent", nil, nil},
		{"empty", strPtr(""), nil},
		{"whitespace", strPtr("   "), nil},
		{"tabs and newlines", strPtr("\t\n"), nil},
		{"non-numeric", strPtr("abc"), nil},
		{"null literal", strPtr("null"), nil},
		{"undefined literal", strPtr("undefined"), nil},
		{"decimal", strPtr("1.5"), nil},
		{"exponent", strPtr("1e3"), nil},
		{"trailing garbage", strPtr("12abc"), nil},
		{"numeric", strPtr("42"), ptr(42)},
		{"padded numeric", strPtr("  7 "), ptr(7)},
		{"negative", strPtr("-3"), ptr(-3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ParseDiagramID(tc.raw)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("ParseDiagramID = %d; want nil", *got)
			case tc.want != nil && got == nil:
				t.Fatalf("ParseDiagramID = nil; want %d", *tc.want)
			case tc.want != nil && *got != *tc.want:
				t.Fatalf("ParseDiagramID = %d; want %d", *got, *tc.want)
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }

func TestParseSaveMode(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.SaveMode
	}{
		{"", domain.SaveModeSave},
		{"save", domain.SaveModeSave},
		{"save_as", domain.SaveModeSaveAs},
		{"saveAs", domain.SaveModeSaveAs},
		{" save_as ", domain.SaveModeSaveAs},
		{"overwrite", domain.SaveModeSave},
		{"SAVE_AS", domain.SaveModeSave},
	}
	for _, tc := range tests {
		if got := domain.ParseSaveMode(tc.raw); got != tc.want {
			t.Errorf("ParseSaveMode(%q) = %q; want %q", tc.raw, got, tc.want)
		}
	}
}

func TestSaveRequestTarget(t *testing.T) {
	id := int64(9)
	if got := (domain.SaveRequest{ID: &id, Mode: domain.SaveModeSave}).Target(); got == nil || *got != 9 {
		t.Fatalf("save mode should target id 9, got %v", got)
	}
	if got := (domain.SaveRequest{ID: &id, Mode: domain.SaveModeSaveAs}).Target(); got != nil {
		t.Fatalf("save_as must never target an id, got %d", *got)
	}
	if got := (domain.SaveRequest{Mode: domain.SaveModeSave}).Target(); got != nil {
		t.Fatalf("no id should yield no target, got %d", *got)
	}
}

func TestDiagramOwnershipError(t *testing.T) {
	err := error(&domain.DiagramOwnershipError{ID: 5, OwnedByOther: true})
	if !errors.Is(err, domain.ErrDiagramNotFoundOrNotOwned) {
		t.Fatal("ownership error should match ErrDiagramNotFoundOrNotOwned")
	}
	if errors.Is(err, domain.ErrDiagramNotFound) {
		t.Fatal("ownership error must not match ErrDiagramNotFound")
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &domain.Session{ExpiresAt: now}
	if s.Expired(now) {
		t.Fatal("session expiring exactly now is still valid")
	}
	if !s.Expired(now.Add(time.Nanosecond)) {
		t.Fatal("session should be expired after its expiry")
	}
}
