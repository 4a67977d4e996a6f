package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

type People struct {
	Count   int      `json:"count"`
	Details []string `json:"details"`
}

type Location struct {
	Type    string   `json:"type"`
	Details []string `json:"details"`
}

// ImageMetadata is the structured description of one image.
type ImageMetadata struct {
	Description string   `json:"description"`
	People      People   `json:"people"`
	Objects     []string `json:"objects"`
	Animals     []string `json:"animals"`
	Location    Location `json:"location"`
	Weather     string   `json:"weather"`
	Accessories []string `json:"accessories"`
	Colors      []string `json:"colors"`
	Mood        string   `json:"mood"`
	Tags        []string `json:"tags"`
}

// Describer turns image bytes into metadata.
type Describer interface {
	Describe(ctx context.Context, data []byte, mimeType string) (ImageMetadata, error)
}

const analysisPrompt = `Analyze this image and provide detailed metadata in JSON format.

Extract the following information:
1. description: A one-sentence summary of the image
2. people: count (number of people visible) and details (observations about each person: clothing, accessories, glasses, etc.)
3. objects: array of notable objects in the scene
4. animals: array of animals with type (e.g. "1 cat", "2 dogs")
5. location: type (indoor/outdoor/unknown) and details (mountain, beach, city, room, etc.)
6. weather: weather conditions if outdoor (sunny, cloudy, rainy, night, etc.) or "indoor" if inside
7. accessories: array of accessories worn by people (hat, umbrella, sunglasses, watch, bag, etc.)
8. colors: dominant colors in the image
9. mood: overall mood or atmosphere
10. tags: array of keywords for searching this image

Respond ONLY with valid JSON, no markdown or explanation.`

var codeFence = regexp.MustCompile("```(?:json)?\\n?|\\n?```")

// ParseMetadata reads the model's JSON answer. Answers that are not JSON become fallback metadata
// carrying the first 200 characters of the raw text as the description.
func ParseMetadata(raw string) (ImageMetadata, bool) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	var m ImageMetadata
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return fallbackMetadata(raw), false
	}
	if m.Location.Type == "" {
		m.Location.Type = "unknown"
	}
	if m.Weather == "" {
		m.Weather = "unknown"
	}
	if m.Mood == "" {
		m.Mood = "unknown"
	}
	return m, true
}

func fallbackMetadata(raw string) ImageMetadata {
	desc := raw
	if utf8.RuneCountInString(desc) > 200 {
		desc = string([]rune(desc)[:200])
	}
	return ImageMetadata{
		Description: desc,
		Location:    Location{Type: "unknown"},
		Weather:     "unknown",
		Mood:        "unknown",
	}
}

// FormatMetadataAsText renders metadata as searchable text for the chunk and embed pipeline.
func FormatMetadataAsText(m ImageMetadata, fileName string) string {
	parts := []string{
		"Image: " + fileName,
		"Description: " + m.Description,
	}
	if m.People.Count > 0 {
		parts = append(parts, fmt.Sprintf("People: %d person(s)", m.People.Count))
		for _, d := range m.People.Details {
			parts = append(parts, "  - "+d)
		}
	}
	if len(m.Animals) > 0 {
		parts = append(parts, "Animals: "+strings.Join(m.Animals, ", "))
	}
	if len(m.Objects) > 0 {
		parts = append(parts, "Objects: "+strings.Join(m.Objects, ", "))
	}
	if m.Location.Type != "unknown" {
		parts = append(parts, fmt.Sprintf("Location: %s - %s", m.Location.Type, strings.Join(m.Location.Details, ", ")))
	}
	if m.Weather != "unknown" {
		parts = append(parts, "Weather: "+m.Weather)
	}
	if len(m.Accessories) > 0 {
		parts = append(parts, "Accessories: "+strings.Join(m.Accessories, ", "))
	}
	if len(m.Colors) > 0 {
		parts = append(parts, "Colors: "+strings.Join(m.Colors, ", "))
	}
	parts = append(parts, "Mood: "+m.Mood)
	parts = append(parts, "Tags: "+strings.Join(m.Tags, ", "))
	return strings.Join(parts, "\n")
}
