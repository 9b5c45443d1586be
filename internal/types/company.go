// Package types provides the shared data model of the company search and enrichment pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Company is a company record: a fixed core plus an open side-map of extra scalar attributes.
type Company struct {
	ID          string
	Name        string
	Industry    string
	Country     string
	Locality    string
	Region      string
	Website     string
	LinkedInURL string
	Founded     string // raw stored value, may be string-encoded
	Size        string // range descriptor: "50-100", "200+" or a bare lower bound
	Summary     *string
	Extra       map[string]any // only string, float64 and bool values
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// coreKeys lists the JSON keys owned by the fixed core of Company.
var coreKeys = map[string]bool{
	"id": true, "name": true, "industry": true, "country": true, "locality": true,
	"region": true, "website": true, "linkedin_url": true, "founded": true, "size": true,
	"summary": true, "createdAt": true, "updatedAt": true,
}

// HasSummary reports whether a non-blank summary is stored.
func (c *Company) HasSummary() bool {
	return c.Summary != nil && strings.TrimSpace(*c.Summary) != ""
}

// FoundedYear returns the founded year when the stored value is a plain integer.
func (c *Company) FoundedYear() (int, bool) {
	return ParseFoundedYear(c.Founded)
}

// SizeRange returns the parsed employee-size descriptor.
func (c *Company) SizeRange() (SizeRange, bool) {
	return ParseSizeRange(c.Size)
}

// MarshalJSON flattens Extra into the object; core fields win on key collisions.
// summary is always emitted (null while absent) so pollers can tell pending from missing.
func (c Company) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+13)
	for k, v := range c.Extra {
		if !coreKeys[k] {
			out[k] = v
		}
	}
	out["id"] = c.ID
	out["name"] = c.Name
	setIf(out, "industry", c.Industry)
	setIf(out, "country", c.Country)
	setIf(out, "locality", c.Locality)
	setIf(out, "region", c.Region)
	setIf(out, "website", c.Website)
	setIf(out, "linkedin_url", c.LinkedInURL)
	setIf(out, "founded", c.Founded)
	setIf(out, "size", c.Size)
	if c.HasSummary() {
		out["summary"] = *c.Summary
	} else {
		out["summary"] = nil
	}
	if !c.CreatedAt.IsZero() {
		out["createdAt"] = c.CreatedAt
	}
	if !c.UpdatedAt.IsZero() {
		out["updatedAt"] = c.UpdatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts loosely-typed documents such as bulk-import lines:
// numeric core fields may arrive as numbers or strings, and unknown scalar
// fields land in Extra. Nested objects and arrays outside the core are dropped.
func (c *Company) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("company document must be a JSON object")
	}

	*c = Company{}
	c.ID = scalarString(raw["id"])
	c.Name = scalarString(raw["name"])
	c.Industry = scalarString(raw["industry"])
	c.Country = scalarString(raw["country"])
	c.Locality = scalarString(raw["locality"])
	c.Region = scalarString(raw["region"])
	c.Website = scalarString(raw["website"])
	c.LinkedInURL = scalarString(raw["linkedin_url"])
	c.Founded = scalarString(raw["founded"])
	c.Size = scalarString(raw["size"])
	if s := scalarString(raw["summary"]); s != "" {
		c.Summary = &s
	}
	if t, ok := parseTime(raw["createdAt"]); ok {
		c.CreatedAt = t
	}
	if t, ok := parseTime(raw["updatedAt"]); ok {
		c.UpdatedAt = t
	}

	for k, v := range raw {
		if coreKeys[k] {
			continue
		}
		switch val := v.(type) {
		case string, bool:
			c.setExtra(k, val)
		case json.Number:
			if f, err := val.Float64(); err == nil {
				c.setExtra(k, f)
			}
		}
	}
	return nil
}

func (c *Company) setExtra(k string, v any) {
	if c.Extra == nil {
		c.Extra = make(map[string]any)
	}
	c.Extra[k] = v
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
