package core

import (
	"fmt"
	"strings"
)

// Field is the identifier of one output column.
type Field string

const (
	FieldName     Field = "name"
	FieldAddress  Field = "address"
	FieldStreet   Field = "street"
	FieldExtended Field = "extended"
	FieldCity     Field = "city"
	FieldRegion   Field = "region"
	FieldCode     Field = "code"
	FieldCountry  Field = "country"
	FieldAddr1    Field = "addr1"
	FieldAddr2    Field = "addr2"
)

// AllFields is the complete set of selectable output columns.
var AllFields = []Field{
	FieldName,
	FieldAddress,
	FieldStreet,
	FieldExtended,
	FieldCity,
	FieldRegion,
	FieldCode,
	FieldCountry,
	FieldAddr1,
	FieldAddr2,
}

// DefaultFields is the column selection used when the caller does not pick one.
var DefaultFields = []Field{
	FieldName,
	FieldAddr1,
	FieldAddr2,
	FieldCity,
	FieldRegion,
	FieldCode,
	FieldCountry,
}

// FieldNames returns the identifiers of fields as plain strings.
func FieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

// ParseField validates a single column identifier. Matching ignores case and
// surrounding whitespace.
func ParseField(s string) (Field, error) {
	key := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range AllFields {
		if f == key {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownField, s, strings.Join(FieldNames(AllFields), ", "))
}

// ParseFields validates a column selection. Each entry may itself be a comma
// separated list, so both repeated flags and "name,city" are accepted.
// Order and duplicates are preserved as given.
func ParseFields(values []string) ([]Field, error) {
	var fields []Field
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := ParseField(part)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// FlatRecord is the flattened form of one contact.
type FlatRecord struct {
	Name     string
	Address  string // formatted full address, see FormatAddress
	Street   string
	Extended string
	City     string
	Region   string
	Code     string
	Country  string
	Addr1    string
	Addr2    string

	// Source is the contact the record was built from. Never serialized.
	Source *Contact
}

// Value returns the column value for f. Unknown fields read as "".
func (r *FlatRecord) Value(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldAddress:
		return r.Address
	case FieldStreet:
		return r.Street
	case FieldExtended:
		return r.Extended
	case FieldCity:
		return r.City
	case FieldRegion:
		return r.Region
	case FieldCode:
		return r.Code
	case FieldCountry:
		return r.Country
	case FieldAddr1:
		return r.Addr1
	case FieldAddr2:
		return r.Addr2
	default:
		return ""
	}
}

// String returns the record's display name.
func (r *FlatRecord) String() string {
	return r.Name
}

// SuppressCountry clears the record's country when it equals country exactly.
func SuppressCountry(r *FlatRecord, country string) {
	if r.Country == country {
		r.Country = ""
	}
}

// Header returns the header row for a column selection: the field
// identifiers themselves.
func Header(fields []Field) []string {
	return FieldNames(fields)
}

// Project returns the record's values for fields, in the order given.
func Project(r *FlatRecord, fields []Field) []string {
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = r.Value(f)
	}
	return row
}
