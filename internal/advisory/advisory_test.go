package advisory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
)

func testEvent() models.ConflictEvent {
	return models.ConflictEvent{
		Country:   "Nigeria",
		Admin1:    "Borno",
		EventType: "Violence against civilians",
		Actor1:    "Boko Haram",
		Year:      2023,
	}
}

func TestGenerateHighRisk(t *testing.T) {
	gen, err := NewGenerator("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adv := gen.Generate(testEvent(), models.RiskHigh, 82.5)
	if !strings.Contains(adv.AIRecommendation, "Borno, Nigeria") {
		t.Fatalf("recommendation missing location context: %q", adv.AIRecommendation)
	}
	if !strings.Contains(adv.AIRecommendation, "Boko Haram") {
		t.Fatalf("recommendation missing actor: %q", adv.AIRecommendation)
	}
	if !strings.Contains(adv.IfNoAction, "[ALERT]") {
		t.Fatalf("expected alert framing for high risk: %q", adv.IfNoAction)
	}
}

func TestGenerateLowRisk(t *testing.T) {
	gen, err := NewGenerator("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adv := gen.Generate(testEvent(), models.RiskLow, 64.0)
	if !strings.Contains(adv.AIRecommendation, "[STABLE]") {
		t.Fatalf("expected stability framing for low risk: %q", adv.AIRecommendation)
	}
	if !strings.Contains(adv.IfNoAction, "Boko Haram") {
		t.Fatalf("if-no-action missing actor context: %q", adv.IfNoAction)
	}
}

func TestGenerateUnknownClassFallsBack(t *testing.T) {
	gen, err := NewGenerator("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adv := gen.Generate(testEvent(), "Medium Risk", 50)
	if adv.AIRecommendation == "" || adv.IfNoAction == "" {
		t.Fatal("expected non-empty advisory for unknown class")
	}
}

func TestGeneratorLoadsPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "advisory.yaml")
	body := []byte("rules:\n- prediction: High Risk\n  recommendation: \"escalate in {region}\"\n  ifNoAction: \"risk grows\"\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	gen, err := NewGenerator(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adv := gen.Generate(testEvent(), models.RiskHigh, 90)
	if adv.AIRecommendation != "escalate in Borno" {
		t.Fatalf("pack template not applied: %q", adv.AIRecommendation)
	}
}

func TestGeneratorMissingPackUsesDefaults(t *testing.T) {
	gen, err := NewGenerator(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adv := gen.Generate(testEvent(), models.RiskHigh, 90)
	if !strings.Contains(adv.AIRecommendation, "[WARNING]") {
		t.Fatal("expected compiled-in high-risk template")
	}
}
