// Package template renders the outreach email from client data.
package template

import (
	"github.com/prestige-production/outreach/internal/client"
)

// Template holds the three renderable parts of an outreach email. Subject and
// Text are text templates, HTML is an html template with auto-escaping.
type Template struct {
	Subject string `yaml:"subject" json:"subject"`
	Text    string `yaml:"text" json:"text"`
	HTML    string `yaml:"html" json:"html,omitempty"`
}

// RenderResult contains the rendered output for one client
type RenderResult struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Data is the value set available inside templates.
type Data struct {
	Name        string
	Email       string
	Company     string
	CompanyText string // "your organization" when the company is unknown
	Attrs       map[string]string

	// Tracking placeholders, empty when rendering an approval preview.
	TrackingPixelURL string
	TrackingClickURL string
}

// BuildData assembles template data for a client.
func BuildData(c client.Client) Data {
	d := Data{
		Name:    c.DisplayName(),
		Email:   c.Email,
		Company: c.Company,
		Attrs:   c.Attrs,
	}
	if c.Company != "" {
		d.CompanyText = c.Company
	} else {
		d.CompanyText = "your organization"
	}
	return d
}
