package models

// CompanyInfo represents the issuing company printed on every document.
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Fax     string `json:"fax"`

	// Tax & legal identifiers (Morocco)
	ICE string `json:"ice"`
	RC  string `json:"rc"`

	// Branding
	Logo       string `json:"logo,omitempty"`
	RIB        string `json:"rib,omitempty"`
	Stamp      string `json:"stamp,omitempty"`
	ColorTheme string `json:"colorTheme"`
	FontSize   int    `json:"fontSize"`
	HeaderText string `json:"headerText,omitempty"`
	FooterText string `json:"footerText,omitempty"`
	Watermark  string `json:"watermark,omitempty"`
}

// DefaultColorTheme is used when the company has no theme configured.
const DefaultColorTheme = "#3B82F6"

// Theme returns the configured color or the default one.
func (c CompanyInfo) Theme() string {
	if c.ColorTheme == "" {
		return DefaultColorTheme
	}
	return c.ColorTheme
}
