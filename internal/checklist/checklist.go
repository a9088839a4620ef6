// Package checklist loads, caches, and serves the per-region audit
// checklist configurations.
package checklist

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/clearfreight/customs-audit/internal/model"
)

// FieldRef names one or more fields on a document, in order. The JSON form
// accepts either a bare string or an array of strings.
type FieldRef []string

// UnmarshalJSON accepts "field" or ["field_a", "field_b"].
func (f *FieldRef) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = FieldRef{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return eris.Wrap(err, "checklist: field ref must be a string or string array")
	}
	*f = FieldRef(many)
	return nil
}

// CompareFields names the documents and fields a check compares.
type CompareFields struct {
	SourceDoc   model.DocumentType `json:"source_doc"`
	SourceField FieldRef           `json:"source_field"`
	TargetDoc   model.DocumentType `json:"target_doc"`
	TargetField FieldRef           `json:"target_field"`
}

// Check is a single auditable checklist item.
type Check struct {
	ID               string        `json:"id"`
	AuditingCriteria string        `json:"auditing_criteria"`
	Description      string        `json:"description"`
	CheckingLogic    string        `json:"checking_logic"`
	PassConditions   string        `json:"pass_conditions"`
	CompareFields    CompareFields `json:"compare_fields"`
	ReferenceURL     string        `json:"reference_url,omitempty"`
}

// Category groups checks under one audit dimension.
type Category struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Checks      []Check `json:"checks"`
}

// Categories holds the two top-level check categories. Check order within a
// category is authoritative: the validator preserves it in its output.
type Categories struct {
	Header    Category `json:"header"`
	Valuation Category `json:"valuation"`
}

// Checklist is the full configuration for one region.
type Checklist struct {
	Version     string       `json:"version"`
	Region      model.Region `json:"region"`
	Description string       `json:"description"`
	LastUpdated string       `json:"last_updated"`
	Categories  Categories   `json:"categories"`
}

// Validate enforces the checklist invariants: a known region, and check IDs
// unique across the whole checklist.
func (c *Checklist) Validate() error {
	if _, ok := model.ParseRegion(string(c.Region)); !ok {
		return eris.Errorf("checklist: unknown region %q", c.Region)
	}
	if c.Version == "" {
		return eris.New("checklist: missing version")
	}

	seen := make(map[string]struct{})
	for _, check := range append(append([]Check{}, c.Categories.Header.Checks...), c.Categories.Valuation.Checks...) {
		if check.ID == "" {
			return eris.New("checklist: check with empty id")
		}
		if _, dup := seen[check.ID]; dup {
			return eris.Errorf("checklist: duplicate check id %q", check.ID)
		}
		seen[check.ID] = struct{}{}
	}
	return nil
}

// HeaderChecks returns the header-category checks in configured order.
func (c *Checklist) HeaderChecks() []Check {
	return c.Categories.Header.Checks
}

// ValuationChecks returns the valuation-category checks in configured order.
func (c *Checklist) ValuationChecks() []Check {
	return c.Categories.Valuation.Checks
}

// Parse decodes and validates checklist JSON.
func Parse(data []byte) (*Checklist, error) {
	var c Checklist
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "checklist: parse json")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
