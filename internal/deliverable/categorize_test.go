package deliverable

import (
	"testing"

	"github.com/mbstudio/backstage/internal/model"
)

func TestCategorizeExactMatch(t *testing.T) {
	tests := []struct {
		input string
		want  model.DeliverableCategory
	}{
		{"reel", model.CategoryMedia},
		{"story", model.CategoryMedia},
		{"shoot", model.CategoryCapture},
		{"whitelisting", model.CategoryAdvertising},
		{"event", model.CategoryEvent},
		{"panel", model.CategoryEvent},
	}
	for _, tt := range tests {
		got := Categorize(tt.input)
		if got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCategorizeSubstringMatch(t *testing.T) {
	tests := []struct {
		input string
		want  model.DeliverableCategory
	}{
		{"Instagram Reel 3x hook variants", model.CategoryMedia},
		{"TikTok series part 2", model.CategoryMedia},
		{"Product photoshoot in Berlin", model.CategoryCapture},
		{"Studio filming day", model.CategoryCapture},
		{"Spark ad usage rights extension", model.CategoryAdvertising},
		{"Store opening appearance", model.CategoryEvent},
		{"Launch event coverage", model.CategoryEvent},
	}
	for _, tt := range tests {
		got := Categorize(tt.input)
		if got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCategorizeCaseInsensitive(t *testing.T) {
	tests := []struct {
		input string
		want  model.DeliverableCategory
	}{
		{"REEL", model.CategoryMedia},
		{"Photoshoot", model.CategoryCapture},
		{"LAUNCH EVENT", model.CategoryEvent},
	}
	for _, tt := range tests {
		got := Categorize(tt.input)
		if got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCategorizeFallback(t *testing.T) {
	tests := []string{"", "   ", "quarterly strategy sync", "misc admin"}
	for _, input := range tests {
		got := Categorize(input)
		if got != model.CategoryOther {
			t.Errorf("Categorize(%q) = %q, want %q", input, got, model.CategoryOther)
		}
	}
}

func TestCategorizeCapturePrecedesMedia(t *testing.T) {
	// "Reel shooting day" mentions both a media format and capture work;
	// the capture keyword wins because the content still has to be produced.
	got := Categorize("Reel shooting day")
	if got != model.CategoryCapture {
		t.Errorf("Categorize = %q, want %q", got, model.CategoryCapture)
	}
}
