package parser

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/weave/internal/models"
)

// ImageWidths are the accepted values of an image block's width field.
var ImageWidths = []string{"normal", "wide", "full"}

var errConfigNotMapping = errors.New("block body must be a YAML mapping")

// decodeMediaConfig parses a media block body. An empty body is an empty
// config.
func decodeMediaConfig(body string) (map[string]any, error) {
	if strings.TrimSpace(body) == "" {
		return map[string]any{}, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return map[string]any{}, err
	}
	if len(doc.Content) == 0 {
		return map[string]any{}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return map[string]any{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return map[string]any{}, errConfigNotMapping
	}
	cfg := map[string]any{}
	if err := root.Decode(&cfg); err != nil {
		return map[string]any{}, err
	}
	return cfg, nil
}

type issue struct {
	severity models.Severity
	message  string
}

// validateMedia runs the structural checks of one media type.
func validateMedia(mediaType string, cfg map[string]any) []issue {
	var out []issue
	requireString := func(field, label string) {
		if s, ok := cfg[field].(string); !ok || s == "" {
			out = append(out, issue{models.SeverityError, fmt.Sprintf("%s block requires %q field", label, field)})
		}
	}

	switch mediaType {
	case MediaImage:
		requireString("file", "Image")
		if !truthy(cfg["alt"]) {
			out = append(out, issue{models.SeverityWarning, `Image block should include "alt" field for accessibility`})
		}
		if w, ok := cfg["width"]; ok {
			s, isStr := w.(string)
			if !isStr || !slices.Contains(ImageWidths, s) {
				out = append(out, issue{models.SeverityError, fmt.Sprintf(`Image "width" must be one of: %s`, strings.Join(ImageWidths, ", "))})
			}
		}
	case MediaGallery:
		if files, ok := cfg["files"].([]any); !ok || len(files) == 0 {
			out = append(out, issue{models.SeverityError, `Gallery block requires non-empty "files" array`})
		}
	case MediaAudio:
		requireString("file", "Audio")
	case MediaVideo:
		requireString("file", "Video")
	case MediaVoiceover:
		requireString("file", "Voiceover")
	case MediaEmbed:
		requireString("url", "Embed")
	}
	return out
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	default:
		return true
	}
}
