// Package vcf adapts github.com/emersion/go-vcard to the core contact model.
//
// The parser owns the vCard grammar (line folding, escaping, BEGIN/END
// framing). This package only maps the ORG and ADR properties onto
// core.Contact and turns the decoder loop into a lazy sequence.
package vcf

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/JonMunkholm/vcf2csv/internal/core"
)

// Contacts returns a lazy sequence of the contacts in r.
//
// The sequence ends at the end of input. A decode failure is yielded once as
// an error matching core.ErrInvalidInput and ends the sequence; a failure of
// r itself is yielded unchanged (wrapped) so callers can tell I/O problems
// from malformed data.
func Contacts(r io.Reader) iter.Seq2[core.Contact, error] {
	return func(yield func(core.Contact, error) bool) {
		src := &recordingReader{r: r}
		dec := vcard.NewDecoder(src)

		for {
			card, err := dec.Decode()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(core.Contact{}, classify(err, src.err))
				return
			}
			if !yield(FromCard(card), nil) {
				return
			}
		}
	}
}

// FromCard maps one decoded card to a contact.
func FromCard(card vcard.Card) core.Contact {
	return core.Contact{
		Organization: organization(card),
		Address:      address(card),
		Pretty:       Pretty(card),
	}
}

// organization returns the ORG components, or nil when the card has no ORG
// or every component is blank.
func organization(card vcard.Card) []string {
	field := card.Get(vcard.FieldOrganization)
	if field == nil {
		return nil
	}

	parts := splitComponents(field.Value)
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			return parts
		}
	}
	return nil
}

// address maps the preferred ADR positionally. Positions beyond the end of a
// short ADR value are left out of the result.
func address(card vcard.Card) core.Address {
	field := card.Preferred(vcard.FieldAddress)
	if field == nil {
		return nil
	}

	parts := splitComponents(field.Value)
	addr := make(core.Address, len(core.AddressParts))
	for i, part := range core.AddressParts {
		if i >= len(parts) {
			break
		}
		addr[part] = parts[i]
	}
	return addr
}

// splitComponents splits a structured value on ";", keeping "\;" as a
// literal semicolon.
func splitComponents(value string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '\\' && i+1 < len(value) && value[i+1] == ';':
			cur.WriteByte(';')
			i++
		case c == ';':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}

// Pretty renders a card as "NAME: value" lines sorted by property name.
func Pretty(card vcard.Card) string {
	names := make([]string, 0, len(card))
	for name := range card {
		if name == vcard.FieldVersion {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		for _, field := range card[name] {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s: %s", name, strings.ReplaceAll(field.Value, "\n", `\n`))
		}
	}
	return b.String()
}

// recordingReader remembers the first non-EOF error of the wrapped reader.
type recordingReader struct {
	r   io.Reader
	err error
}

func (r *recordingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF && r.err == nil {
		r.err = err
	}
	return n, err
}

func classify(err, readErr error) error {
	if readErr != nil && errors.Is(err, readErr) {
		return fmt.Errorf("read contacts: %w", err)
	}
	return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
}
