package opcli

import (
	"encoding/json"
	"fmt"
)

// FieldType is the op CLI wire name for a field's type.
// Reference: https://developer.1password.com/docs/cli/item-fields/
type FieldType string

const (
	// FieldTypeConcealed is a concealed password field.
	FieldTypeConcealed FieldType = "CONCEALED"
	FieldTypeString    FieldType = "STRING"
	FieldTypeEmail     FieldType = "EMAIL"
	FieldTypeURL       FieldType = "URL"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeMonthYear FieldType = "MONTH_YEAR"
	FieldTypePhone     FieldType = "PHONE"
	// FieldTypeOTP accepts an otpauth:// URI.
	FieldTypeOTP FieldType = "OTP"
	// FieldTypeMenu is undocumented; the `type` field of API Credential
	// items uses it.
	FieldTypeMenu FieldType = "MENU"
)

// ListItem is one row of `op item list` output.
type ListItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Item is the template returned by `op item get --format json`.
// Reference: https://developer.1password.com/docs/cli/item-template-json/
//
// The typed fields cover what this tool reads; raw preserves the complete
// template so the edit upload never drops keys the struct doesn't model.
type Item struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Fields   []Field `json:"fields"`

	raw json.RawMessage
}

func (it *Item) String() string {
	return fmt.Sprintf("%s (id: %s)", it.Title, it.ID)
}

// payloadWithFieldValue returns the full item template with the value of
// the identified field replaced. The replacement happens on the raw
// template so unmodeled keys survive the round trip.
func (it *Item) payloadWithFieldValue(fieldID, value string) ([]byte, error) {
	if it.raw == nil {
		return nil, fmt.Errorf("item %s has no template to edit", it.ID)
	}

	var tpl map[string]interface{}
	if err := json.Unmarshal(it.raw, &tpl); err != nil {
		return nil, fmt.Errorf("failed to decode item template: %w", err)
	}

	fields, ok := tpl["fields"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("item %s template has no fields array", it.ID)
	}

	found := false
	for _, f := range fields {
		fm, ok := f.(map[string]interface{})
		if !ok {
			continue
		}
		if fm["id"] == fieldID {
			fm["value"] = value
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("field %q not present in item %s", fieldID, it.ID)
	}

	return json.Marshal(tpl)
}

// Field is one field of an item template. A nil Section means the field
// sits at the top level of the item.
type Field struct {
	ID        string        `json:"id"`
	Section   *FieldSection `json:"section,omitempty"`
	Type      FieldType     `json:"type"`
	Label     string        `json:"label,omitempty"`
	Value     string        `json:"value,omitempty"`
	Reference string        `json:"reference,omitempty"`
}

// DisplayName is the field's label when set, else its id. Used for the
// placement lines printed after each update.
func (f *Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// FieldSection references the section a field belongs to.
type FieldSection struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}
