package update

import (
	"fmt"

	"github.com/systmms/opcredsync/internal/opcli"
)

// NoUpdatableFieldError indicates an item has no concealed field at all,
// so there is nothing safe to overwrite.
type NoUpdatableFieldError struct {
	Item string
}

func (e NoUpdatableFieldError) Error() string {
	return fmt.Sprintf("no concealed field to update in item %s", e.Item)
}

// fieldTiers are the selection predicates, highest priority first. The
// assumption they encode: an item's primary secret is conventionally the
// top-level concealed field with id "credential" (op's API Credential
// template), falling back to any top-level concealed field, then any
// concealed field at all.
var fieldTiers = []func(f *opcli.Field) bool{
	func(f *opcli.Field) bool {
		return f.Type == opcli.FieldTypeConcealed && f.Section == nil && f.ID == "credential"
	},
	func(f *opcli.Field) bool {
		return f.Type == opcli.FieldTypeConcealed && f.Section == nil
	},
	func(f *opcli.Field) bool {
		return f.Type == opcli.FieldTypeConcealed
	},
}

// SelectField picks the one field of item to overwrite. Tiers are
// evaluated in order and the first field satisfying a tier wins, scanning
// the item's native field order within each tier. First match, not best
// match.
func SelectField(item *opcli.Item) (*opcli.Field, error) {
	for _, tier := range fieldTiers {
		for i := range item.Fields {
			if tier(&item.Fields[i]) {
				return &item.Fields[i], nil
			}
		}
	}
	return nil, NoUpdatableFieldError{Item: item.String()}
}
