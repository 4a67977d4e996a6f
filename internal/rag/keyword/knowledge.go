package keyword

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type textEntry struct {
	Text string `json:"text"`
}

type filesFormat struct {
	Files []textEntry `json:"files"`
}

type portfolioFormat struct {
	Bio    string `json:"bio"`
	Skills []struct {
		Category string   `json:"category"`
		Items    []string `json:"items"`
	} `json:"skills"`
	Projects []struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		Technologies []string `json:"technologies"`
		Highlights   []string `json:"highlights"`
	} `json:"projects"`
	Experience []struct {
		Role             string   `json:"role"`
		Company          string   `json:"company"`
		Duration         string   `json:"duration"`
		Responsibilities []string `json:"responsibilities"`
	} `json:"experience"`
	Education *struct {
		Degree       string   `json:"degree"`
		University   string   `json:"university"`
		Year         string   `json:"year"`
		Achievements []string `json:"achievements"`
	} `json:"education"`
	FAQ []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"faq"`
	Contact *struct {
		Email    string `json:"email"`
		GitHub   string `json:"github"`
		LinkedIn string `json:"linkedin"`
	} `json:"contact"`
}

// LoadKnowledge reads the portfolio knowledge file. A missing file yields an empty corpus.
func LoadKnowledge(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge %s: %w", path, err)
	}
	return ParseKnowledge(data)
}

// ParseKnowledge accepts an array of {text} entries, an object with a files array, or the
// structured portfolio document, which is rendered into one passage per item.
func ParseKnowledge(data []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var entries []textEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse knowledge array: %w", err)
		}
		return texts(entries), nil
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("parse knowledge: %w", err)
	}
	if _, ok := shape["files"]; ok {
		var f filesFormat
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse knowledge files: %w", err)
		}
		return texts(f.Files), nil
	}

	var p portfolioFormat
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse portfolio: %w", err)
	}
	return renderPortfolio(p), nil
}

func texts(entries []textEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Text != "" {
			out = append(out, e.Text)
		}
	}
	return out
}

func renderPortfolio(p portfolioFormat) []string {
	var chunks []string
	if p.Bio != "" {
		chunks = append(chunks, "Bio: "+p.Bio)
	}
	for _, s := range p.Skills {
		chunks = append(chunks, fmt.Sprintf("%s skills: %s", s.Category, strings.Join(s.Items, ", ")))
	}
	for _, pr := range p.Projects {
		chunks = append(chunks, fmt.Sprintf("Project: %s. %s. Technologies: %s. Highlights: %s",
			pr.Name, pr.Description, strings.Join(pr.Technologies, ", "), strings.Join(pr.Highlights, "; ")))
	}
	for _, e := range p.Experience {
		chunks = append(chunks, fmt.Sprintf("Experience: %s at %s (%s). Responsibilities: %s",
			e.Role, e.Company, e.Duration, strings.Join(e.Responsibilities, "; ")))
	}
	if e := p.Education; e != nil {
		chunks = append(chunks, fmt.Sprintf("Education: %s from %s (%s). %s",
			e.Degree, e.University, e.Year, strings.Join(e.Achievements, "; ")))
	}
	for _, f := range p.FAQ {
		chunks = append(chunks, fmt.Sprintf("Q: %s A: %s", f.Question, f.Answer))
	}
	if c := p.Contact; c != nil {
		chunks = append(chunks, fmt.Sprintf("Contact: Email - %s, GitHub - %s, LinkedIn - %s", c.Email, c.GitHub, c.LinkedIn))
	}
	return chunks
}
