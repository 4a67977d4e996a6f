package persona

import (
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
)

type Contact struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
	Location string `json:"location"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Period      string `json:"period"`
	Score       string `json:"score,omitempty"`
}

type Skills struct {
	Languages   []string `json:"languages"`
	Frameworks  []string `json:"frameworks"`
	Design      []string `json:"design"`
	DataScience []string `json:"dataScience"`
	Databases   []string `json:"databases"`
}

func (s Skills) all() []string {
	var out []string
	for _, group := range [][]string{s.Languages, s.Frameworks, s.Design, s.DataScience, s.Databases} {
		out = append(out, group...)
	}
	return out
}

func (s Skills) empty() bool {
	return len(s.all()) == 0
}

type Experience struct {
	Role       string   `json:"role"`
	Company    string   `json:"company"`
	Period     string   `json:"period"`
	Highlights []string `json:"highlights"`
}

type Project struct {
	Name        string   `json:"name"`
	Year        string   `json:"year"`
	Tech        []string `json:"tech"`
	Description string   `json:"description"`
	Repo        string   `json:"repo,omitempty"`
}

// Persona is the portfolio owner the assistant speaks as.
type Persona struct {
	Name           string       `json:"name"`
	Headline       string       `json:"headline"`
	Contact        Contact      `json:"contact"`
	About          string       `json:"about"`
	Education      []Education  `json:"education"`
	PrimaryFocus   []string     `json:"primaryFocus"`
	Skills         Skills       `json:"skills"`
	Experience     []Experience `json:"experience"`
	Projects       []Project    `json:"projects"`
	Certifications []string     `json:"certifications"`
	Achievements   []string     `json:"achievements"`
	Languages      []string     `json:"languages"`
	Interests      []string     `json:"interests"`
}

// Validate checks the fields every prompt depends on.
func (p *Persona) Validate() error {
	if p == nil {
		return ragErrors.Validation("persona data required")
	}
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("missing required field: name"))
	}
	if strings.TrimSpace(p.Headline) == "" {
		errs = append(errs, errors.New("missing required field: headline"))
	}
	if strings.TrimSpace(p.Contact.Email) == "" {
		errs = append(errs, errors.New("missing required field: contact.email"))
	}
	if p.Skills.empty() {
		errs = append(errs, errors.New("missing required field: skills"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ragErrors.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// WorkKeywords are the employer, project and skill names that mark a reply as being about the owner's work.
func (p *Persona) WorkKeywords() []string {
	var out []string
	for _, e := range p.Experience {
		out = append(out, e.Company)
	}
	for _, pr := range p.Projects {
		out = append(out, pr.Name)
	}
	out = append(out, p.Skills.all()...)
	return out
}

// QuickFacts is the short profile used for health output and tool responses.
func (p *Persona) QuickFacts() string {
	lines := []string{
		"Name: " + p.Name,
		"Role: " + p.Headline,
		"Contact: " + joinNonEmpty(" | ", p.Contact.Email, p.Contact.Phone),
	}
	if p.Contact.Location != "" {
		lines = append(lines, "Location: "+p.Contact.Location)
	}
	if p.Contact.GitHub != "" {
		lines = append(lines, "GitHub: "+p.Contact.GitHub)
	}
	if len(p.PrimaryFocus) > 0 {
		lines = append(lines, "Primary: "+strings.Join(p.PrimaryFocus, ", "))
	}
	return strings.Join(lines, "\n")
}

// KnowledgeChunks renders the persona as passages for the keyword corpus.
func (p *Persona) KnowledgeChunks() []string {
	var chunks []string
	if p.About != "" {
		chunks = append(chunks, "About "+p.Name+": "+p.About)
	}
	for _, e := range p.Experience {
		chunks = append(chunks, fmt.Sprintf("Experience: %s at %s (%s). %s", e.Role, e.Company, e.Period, strings.Join(e.Highlights, "; ")))
	}
	for _, pr := range p.Projects {
		chunks = append(chunks, fmt.Sprintf("Project: %s (%s). %s. Technologies: %s", pr.Name, pr.Year, pr.Description, strings.Join(pr.Tech, ", ")))
	}
	for _, ed := range p.Education {
		chunks = append(chunks, fmt.Sprintf("Education: %s from %s (%s) %s", ed.Degree, ed.Institution, ed.Period, ed.Score))
	}
	if skills := p.Skills.all(); len(skills) > 0 {
		chunks = append(chunks, "Skills: "+strings.Join(skills, ", "))
	}
	if len(p.Certifications) > 0 {
		chunks = append(chunks, "Certifications: "+strings.Join(p.Certifications, ", "))
	}
	chunks = append(chunks, fmt.Sprintf("Contact: Email - %s, GitHub - %s, LinkedIn - %s", p.Contact.Email, p.Contact.GitHub, p.Contact.LinkedIn))
	return chunks
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}
