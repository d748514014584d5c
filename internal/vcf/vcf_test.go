package vcf

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/vcf2csv/internal/core"
)

func card(lines ...string) string {
	return "BEGIN:VCARD\r\nVERSION:3.0\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VCARD\r\n"
}

func collect(t *testing.T, r io.Reader) ([]core.Contact, error) {
	t.Helper()
	var out []core.Contact
	for c, err := range Contacts(r) {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

func TestContacts_ReadsAllCardsInOrder(t *testing.T) {
	input := card("FN:Jane", "ORG:Acme Inc.;Sales") +
		card("FN:Bob", "ORG:Globex") +
		card("FN:No Org")

	contacts, err := collect(t, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, contacts, 3)

	assert.Equal(t, []string{"Acme Inc.", "Sales"}, contacts[0].Organization)
	assert.Equal(t, []string{"Globex"}, contacts[1].Organization)
	assert.Nil(t, contacts[2].Organization)
}

func TestContacts_EmptyInput(t *testing.T) {
	contacts, err := collect(t, strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestContacts_TruncatedCardIsInvalidInput(t *testing.T) {
	input := card("ORG:Acme") + "BEGIN:VCARD\r\nVERSION:3.0\r\nORG:Globex\r\n"

	contacts, err := collect(t, strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Len(t, contacts, 1, "cards before the failure are still yielded")
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestContacts_ReaderFailureIsNotInvalidInput(t *testing.T) {
	boom := errors.New("disk on fire")

	_, err := collect(t, failingReader{err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrInvalidInput)
}

func TestContacts_StopsWhenConsumerBreaks(t *testing.T) {
	input := card("ORG:A") + card("ORG:B") + card("ORG:C")

	seen := 0
	for _, err := range Contacts(strings.NewReader(input)) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestFromCard_Address(t *testing.T) {
	tests := []struct {
		name     string
		adr      string
		want     core.Address
		wantNone bool
	}{
		{
			name: "full address",
			adr:  "ADR;TYPE=WORK:;Suite 5;1 Infinite Loop;Cupertino;CA;95014;United States",
			want: core.Address{
				core.PartPOBox:      "",
				core.PartExtended:   "Suite 5",
				core.PartStreet:     "1 Infinite Loop",
				core.PartCity:       "Cupertino",
				core.PartRegion:     "CA",
				core.PartPostalCode: "95014",
				core.PartCountry:    "United States",
			},
		},
		{
			name: "two line street",
			adr:  `ADR:;;123 Main St\nApt 4;Springfield;IL;62701;USA`,
			want: core.Address{
				core.PartPOBox:      "",
				core.PartExtended:   "",
				core.PartStreet:     "123 Main St\nApt 4",
				core.PartCity:       "Springfield",
				core.PartRegion:     "IL",
				core.PartPostalCode: "62701",
				core.PartCountry:    "USA",
			},
		},
		{
			name: "short value leaves trailing parts absent",
			adr:  "ADR:;;10 Downing St;London",
			want: core.Address{
				core.PartPOBox:    "",
				core.PartExtended: "",
				core.PartStreet:   "10 Downing St",
				core.PartCity:     "London",
			},
		},
		{
			name:     "no address",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := []string{"ORG:Acme"}
			if tt.adr != "" {
				lines = append(lines, tt.adr)
			}
			contacts, err := collect(t, strings.NewReader(card(lines...)))
			require.NoError(t, err)
			require.Len(t, contacts, 1)

			if tt.wantNone {
				assert.Nil(t, contacts[0].Address)
				return
			}
			assert.Equal(t, tt.want, contacts[0].Address)
		})
	}
}

func TestFromCard_PrefersPreferredAddress(t *testing.T) {
	c := vcard.Card{
		vcard.FieldOrganization: {{Value: "Acme"}},
		vcard.FieldAddress: {
			{Value: ";;Home St;Town;;;", Params: vcard.Params{vcard.ParamType: {"home"}}},
			{Value: ";;Work St;City;;;", Params: vcard.Params{vcard.ParamPreferred: {"1"}}},
		},
	}

	contact := FromCard(c)
	street, ok := contact.Address.Get(core.PartStreet)
	require.True(t, ok)
	assert.Equal(t, "Work St", street)
}

func TestOrganization(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"single", "Acme", []string{"Acme"}},
		{"with unit", "Acme;R&D;Lab 2", []string{"Acme", "R&D", "Lab 2"}},
		{"escaped semicolon", `Smith\; Sons;Retail`, []string{"Smith; Sons", "Retail"}},
		{"blank", "", nil},
		{"only separators", " ; ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := vcard.Card{vcard.FieldOrganization: {{Value: tt.value}}}
			assert.Equal(t, tt.want, organization(c))
		})
	}
}

func TestPretty_SortedAndSingleLine(t *testing.T) {
	c := vcard.Card{
		vcard.FieldVersion:       {{Value: "3.0"}},
		vcard.FieldFormattedName: {{Value: "Jane Roe"}},
		vcard.FieldAddress:       {{Value: ";;1 Main\nSt;;;;"}},
	}

	assert.Equal(t, "ADR: ;;1 Main\\nSt;;;;\nFN: Jane Roe", Pretty(c))
}
