package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Preferences Preferences `json:"preferences"`
}

// Preferences is the alerting slice of the users.preferences JSON document.
// Keys the alert engine does not know about are left alone by PreferencesPatch.
type Preferences struct {
	AlertsEnabled  bool       `json:"alertsEnabled"`
	AlertThreshold *float64   `json:"alertThreshold,omitempty"`
	Supplier       string     `json:"supplier,omitempty"`
	LastAlertSent  *time.Time `json:"lastAlertSent,omitempty"`
}

// UnmarshalJSON accepts numbers and booleans written as strings, which the
// web client has stored in the past ("80", "true").
func (p *Preferences) UnmarshalJSON(data []byte) error {
	var raw struct {
		AlertsEnabled  json.RawMessage `json:"alertsEnabled"`
		AlertThreshold json.RawMessage `json:"alertThreshold"`
		Supplier       json.RawMessage `json:"supplier"`
		LastAlertSent  json.RawMessage `json:"lastAlertSent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	enabled, err := looseBool(raw.AlertsEnabled)
	if err != nil {
		return fmt.Errorf("alertsEnabled: %w", err)
	}
	threshold, err := looseFloat(raw.AlertThreshold)
	if err != nil {
		return fmt.Errorf("alertThreshold: %w", err)
	}

	out := Preferences{
		AlertsEnabled:  enabled,
		AlertThreshold: threshold,
		Supplier:       looseString(raw.Supplier),
		LastAlertSent:  looseTime(raw.LastAlertSent),
	}
	*p = out
	return nil
}

// lastAlertSent layouts seen in stored documents, most specific first.
var alertTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// looseTime parses a stored timestamp. Anything unreadable is treated as
// never sent, so a corrupt value cannot keep a user suppressed or break the
// query for others. Zone-less values are read as UTC.
func looseTime(raw json.RawMessage) *time.Time {
	var s string
	if err := json.Unmarshal(bytes.TrimSpace(raw), &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range alertTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

// looseString returns raw when it is a JSON string and "" otherwise.
func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(bytes.TrimSpace(raw), &s); err != nil {
		return ""
	}
	return s
}

// PreferencesPatch is a partial update. Nil fields are not written.
type PreferencesPatch struct {
	AlertsEnabled  *bool
	AlertThreshold *float64
	Supplier       *string
	LastAlertSent  *time.Time
}

func (pp PreferencesPatch) IsEmpty() bool {
	return pp.AlertsEnabled == nil && pp.AlertThreshold == nil && pp.Supplier == nil && pp.LastAlertSent == nil
}

// Document returns the JSON object to merge into the stored preferences.
func (pp PreferencesPatch) Document() ([]byte, error) {
	doc := make(map[string]any, 4)
	if pp.AlertsEnabled != nil {
		doc["alertsEnabled"] = *pp.AlertsEnabled
	}
	if pp.AlertThreshold != nil {
		doc["alertThreshold"] = *pp.AlertThreshold
	}
	if pp.Supplier != nil {
		doc["supplier"] = *pp.Supplier
	}
	if pp.LastAlertSent != nil {
		doc["lastAlertSent"] = pp.LastAlertSent.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(doc)
}

// Apply merges the patch into p in place.
func (pp PreferencesPatch) Apply(p *Preferences) {
	if pp.AlertsEnabled != nil {
		p.AlertsEnabled = *pp.AlertsEnabled
	}
	if pp.AlertThreshold != nil {
		v := *pp.AlertThreshold
		p.AlertThreshold = &v
	}
	if pp.Supplier != nil {
		p.Supplier = *pp.Supplier
	}
	if pp.LastAlertSent != nil {
		ts := pp.LastAlertSent.UTC()
		p.LastAlertSent = &ts
	}
}

func looseBool(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, err
	}
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func looseFloat(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
