package alerts

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

func TestRenderAlertEmail(t *testing.T) {
	c := models.AlertCandidate{
		User: models.User{
			ID:    uuid.New(),
			Email: "jan@example.be",
			Name:  "Jan",
			Preferences: models.Preferences{
				Supplier: "Engie",
			},
		},
		CurrentPrice: 65,
		Threshold:    80,
	}

	subject, html, err := RenderAlertEmail(c, "https://app.example.be")
	if err != nil {
		t.Fatalf("RenderAlertEmail: %v", err)
	}
	if subject != "⚡ Price Alert: €65/MWh, below your €80 threshold" {
		t.Fatalf("subject: got %q", subject)
	}
	for _, want := range []string{"Hi Jan!", "€65.0", "€80.0", "€15.0", "Supplier: Engie", `href="https://app.example.be"`} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestSubject_ThresholdAsEntered(t *testing.T) {
	cases := []struct {
		price, threshold float64
		want             string
	}{
		{65, 80, "⚡ Price Alert: €65/MWh, below your €80 threshold"},
		{61.7, 72.5, "⚡ Price Alert: €62/MWh, below your €72.5 threshold"},
		{-3.2, 0, "⚡ Price Alert: €-3/MWh, below your €0 threshold"},
		{99.99, 100.25, "⚡ Price Alert: €100/MWh, below your €100.25 threshold"},
	}
	for _, tc := range cases {
		got := Subject(models.AlertCandidate{CurrentPrice: tc.price, Threshold: tc.threshold})
		if got != tc.want {
			t.Errorf("Subject(%v, %v) = %q, want %q", tc.price, tc.threshold, got, tc.want)
		}
	}
}

func TestRenderAlertEmail_Fallbacks(t *testing.T) {
	c := models.AlertCandidate{
		User:         models.User{ID: uuid.New(), Email: "x@example.be"},
		CurrentPrice: 42.46,
		Threshold:    50,
	}

	subject, html, err := RenderAlertEmail(c, "https://app.example.be")
	if err != nil {
		t.Fatalf("RenderAlertEmail: %v", err)
	}
	if !strings.Contains(subject, "€42/MWh") {
		t.Fatalf("subject should round price to whole euros: %q", subject)
	}
	for _, want := range []string{"Hi there!", "Supplier: Not set", "€42.5", "€7.5"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestRenderAlertEmail_EscapesName(t *testing.T) {
	c := models.AlertCandidate{
		User:         models.User{ID: uuid.New(), Name: "<b>Eve</b>"},
		CurrentPrice: 10,
		Threshold:    20,
	}
	_, html, err := RenderAlertEmail(c, "https://app.example.be")
	if err != nil {
		t.Fatalf("RenderAlertEmail: %v", err)
	}
	if strings.Contains(html, "<b>Eve</b>") {
		t.Fatal("user name must be HTML-escaped")
	}
}

func TestFormatEUR(t *testing.T) {
	tests := map[float64]string{
		15:     "€15.0",
		-3.24:  "€-3.2",
		0:      "€0.0",
		129.94: "€129.9",
	}
	for in, want := range tests {
		if got := FormatEUR(in); got != want {
			t.Errorf("FormatEUR(%v) = %q, want %q", in, got, want)
		}
	}
}
