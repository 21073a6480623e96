package models

// FieldMapping declares how one native source field becomes a field of the
// canonical target schema. The mapping list is ordered and read-only during
// a sync.
type FieldMapping struct {
	SourceField string    `json:"source_field"`
	TargetField string    `json:"target_field"`
	TypeHint    FieldType `json:"type_hint,omitempty"`
	Validators  []string  `json:"validators,omitempty"`
	Transform   string    `json:"transform,omitempty"` // Optional transform expression
}

// FieldType is a primitive target-schema type.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
)

// ValidationSchema maps target fields to the primitive type each must hold.
// A record fails validation if any declared field is missing, nil, or
// type-mismatched.
type ValidationSchema map[string]FieldType
