package deliverable

import (
	"strings"

	"github.com/mbstudio/backstage/internal/model"
)

// Categorize suggests a deliverable category for the given title.
// It performs case-insensitive matching: exact match first, then substring
// match. Falls back to "other" when nothing fits.
func Categorize(title string) model.DeliverableCategory {
	name := strings.ToLower(strings.TrimSpace(title))
	if name == "" {
		return model.CategoryOther
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	// Substring pass, ordered more-specific first.
	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return model.CategoryOther
}

var exactMatch = map[string]model.DeliverableCategory{
	// Media posts
	"reel":          model.CategoryMedia,
	"reels":         model.CategoryMedia,
	"story":         model.CategoryMedia,
	"stories":       model.CategoryMedia,
	"post":          model.CategoryMedia,
	"posts":         model.CategoryMedia,
	"carousel":      model.CategoryMedia,
	"tiktok":        model.CategoryMedia,
	"short":         model.CategoryMedia,
	"shorts":        model.CategoryMedia,
	"video":         model.CategoryMedia,
	"vlog":          model.CategoryMedia,
	"newsletter":    model.CategoryMedia,
	"blog post":     model.CategoryMedia,
	"podcast":       model.CategoryMedia,

	// Capture work
	"shoot":         model.CategoryCapture,
	"photoshoot":    model.CategoryCapture,
	"photo shoot":   model.CategoryCapture,
	"shooting day":  model.CategoryCapture,
	"filming":       model.CategoryCapture,
	"drehtag":       model.CategoryCapture,
	"b-roll":        model.CategoryCapture,

	// Paid placements
	"ad":            model.CategoryAdvertising,
	"ads":           model.CategoryAdvertising,
	"spark ad":      model.CategoryAdvertising,
	"whitelisting":  model.CategoryAdvertising,
	"usage rights":  model.CategoryAdvertising,

	// Appearances
	"event":         model.CategoryEvent,
	"launch event":  model.CategoryEvent,
	"meet and greet": model.CategoryEvent,
	"panel":         model.CategoryEvent,
}

var substringMatches = []struct {
	keyword  string
	category model.DeliverableCategory
}{
	{"photoshoot", model.CategoryCapture},
	{"photo shoot", model.CategoryCapture},
	{"shooting", model.CategoryCapture},
	{"filming", model.CategoryCapture},
	{"capture", model.CategoryCapture},
	{"b-roll", model.CategoryCapture},

	{"whitelisting", model.CategoryAdvertising},
	{"usage rights", model.CategoryAdvertising},
	{"paid media", model.CategoryAdvertising},
	{"spark ad", model.CategoryAdvertising},
	{"advertis", model.CategoryAdvertising},
	{"boosted", model.CategoryAdvertising},

	{"event", model.CategoryEvent},
	{"appearance", model.CategoryEvent},
	{"premiere", model.CategoryEvent},
	{"opening", model.CategoryEvent},
	{"fair", model.CategoryEvent},

	{"reel", model.CategoryMedia},
	{"story", model.CategoryMedia},
	{"stories", model.CategoryMedia},
	{"carousel", model.CategoryMedia},
	{"tiktok", model.CategoryMedia},
	{"youtube", model.CategoryMedia},
	{"instagram", model.CategoryMedia},
	{"post", model.CategoryMedia},
	{"video", model.CategoryMedia},
	{"vlog", model.CategoryMedia},
	{"podcast", model.CategoryMedia},
	{"newsletter", model.CategoryMedia},
	{"blog", model.CategoryMedia},
}
