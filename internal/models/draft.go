package models

import "strings"

// DraftVariant selects which wizard produced a draft.
type DraftVariant string

const (
	VariantStandard  DraftVariant = "standard"
	VariantExclusive DraftVariant = "exclusive"
)

// Selections are the raw choices collected by the configurator wizard.
type Selections struct {
	Variant        DraftVariant `json:"variant"`
	Model          string       `json:"model"`
	ExteriorColor  string       `json:"exterior_color"`
	Interior       string       `json:"interior"`
	Performance    string       `json:"performance,omitempty"`
	Wheels         string       `json:"wheels,omitempty"`
	Aero           []string     `json:"aero,omitempty"`
	Technology     []string     `json:"technology,omitempty"`
	Customizations string       `json:"customizations,omitempty"`
}

// OrderDraft is a submitted configuration waiting for payment. Its price is
// fixed when the draft is created and never recomputed.
type OrderDraft struct {
	Variant        DraftVariant `json:"variant"`
	Model          string       `json:"model"`
	ExteriorColor  string       `json:"exterior_color"`
	Interior       string       `json:"interior"`
	Performance    string       `json:"performance,omitempty"`
	Wheels         string       `json:"wheels,omitempty"`
	Aero           []string     `json:"aero,omitempty"`
	Technology     []string     `json:"technology,omitempty"`
	Customizations string       `json:"customizations,omitempty"`
	Price          string       `json:"price"`
}

// Summary folds the extended options and free-text notes into the single
// customizations field an Order carries.
func (d OrderDraft) Summary() string {
	var parts []string
	if d.Performance != "" && d.Performance != "standard" {
		parts = append(parts, "performance:"+d.Performance)
	}
	if d.Wheels != "" && d.Wheels != "standard" {
		parts = append(parts, "wheels:"+d.Wheels)
	}
	for _, a := range d.Aero {
		parts = append(parts, "aero:"+a)
	}
	for _, t := range d.Technology {
		parts = append(parts, "tech:"+t)
	}
	if notes := strings.TrimSpace(d.Customizations); notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, "; ")
}
