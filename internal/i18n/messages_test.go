package i18n

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRenderTokenIssued(t *testing.T) {
	slot := time.Date(2025, 10, 15, 14, 5, 0, 0, time.UTC)
	tests := []struct {
		locale Locale
		want   string
	}{
		{English, "Pass Issued! Wait: 30 mins. Slot: 14:05. Real-time Update."},
		{Hindi, "पास जारी! प्रतीक्षा: 30 मिन. स्लॉट: 14:05. रीयल-टाइम अपडेट."},
		{Gujarati, "પાસ જારી! વાટ: 30 મિન. સ્લોટ: 14:05. રીઅલ-ટાઇમ અપડેટ."},
	}
	for _, tt := range tests {
		t.Run(string(tt.locale), func(t *testing.T) {
			got, err := Render(TokenIssued, tt.locale, Int(30), Clock(slot))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRejectsBadArgs(t *testing.T) {
	if _, err := Render(TokenIssued, English, Int(30)); !errors.Is(err, ErrTemplateArgs) {
		t.Fatalf("expected arity error, got %v", err)
	}
	if _, err := Render(TokenIssued, English, Text("30"), Clock(time.Now())); !errors.Is(err, ErrTemplateArgs) {
		t.Fatalf("expected kind error, got %v", err)
	}
	if _, err := Render(MessageID(999), English); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected unknown message error, got %v", err)
	}
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	got, err := Render(PanicDetected, Locale("ta"), Text("Main Gate"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Main Gate") || !strings.HasPrefix(got, "Panic at") {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestParseLocale(t *testing.T) {
	tests := map[string]Locale{
		"Hindi":    Hindi,
		"hi":       Hindi,
		"Gujarati": Gujarati,
		" GU ":     Gujarati,
		"English":  English,
		"":         English,
		"fr":       English,
	}
	for in, want := range tests {
		if got := ParseLocale(in); got != want {
			t.Errorf("ParseLocale(%q) = %q, want %q", in, got, want)
		}
	}
}
