package core

// AddressPart identifies one positional component of a structured postal address.
type AddressPart string

const (
	PartPOBox      AddressPart = "pobox"
	PartExtended   AddressPart = "extended"
	PartStreet     AddressPart = "street"
	PartCity       AddressPart = "city"
	PartRegion     AddressPart = "region"
	PartPostalCode AddressPart = "code"
	PartCountry    AddressPart = "country"
)

// AddressParts lists the address components in their vCard ADR order.
var AddressParts = []AddressPart{
	PartPOBox,
	PartExtended,
	PartStreet,
	PartCity,
	PartRegion,
	PartPostalCode,
	PartCountry,
}

// Address holds the parts of a structured address that were present on the
// source card. A part that is present but blank maps to "".
type Address map[AddressPart]string

// Get returns the value of part and whether the part was present at all.
func (a Address) Get(part AddressPart) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a[part]
	return v, ok
}

// Contact is one parsed contact as handed over by the vCard parser.
type Contact struct {
	// Organization holds the ORG components; the first one is the display name.
	// Nil or empty when the card has no organization.
	Organization []string

	// Address is the preferred ADR value, nil when the card has none.
	Address Address

	// Pretty is a readable dump of the source card, used in diagnostics only.
	Pretty string
}
