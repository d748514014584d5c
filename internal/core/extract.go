package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/vcf2csv/internal/logging"
)

// Stats summarizes one ExtractAll pass.
type Stats struct {
	Read       int // contacts consumed from the sequence
	Extracted  int // records produced
	Dropped    int // contacts skipped for a missing required field
	Incomplete int // records produced with at least one missing optional field
}

// Extract builds the flat record for one contact.
//
// The organization is required: when it is absent or its first component is
// blank, Extract logs the contact and returns a *MissingFieldError matching
// ErrMissingRequiredField. Every other
// field is best effort. A missing address, or any missing address part, is
// logged and leaves the matching columns empty.
func Extract(ctx context.Context, c *Contact) (*FlatRecord, error) {
	rec, _, err := extract(ctx, c)
	return rec, err
}

// extract is Extract plus the number of optional fields that were missing.
func extract(ctx context.Context, c *Contact) (*FlatRecord, int, error) {
	logger := logging.FromContext(ctx)

	if len(c.Organization) == 0 || strings.TrimSpace(c.Organization[0]) == "" {
		err := missingRequired("organization")
		logger.Error("contact dropped",
			"contact", c.Pretty,
			"error", err,
		)
		return nil, 0, err
	}

	rec := &FlatRecord{
		Name:   clean(c.Organization[0]),
		Source: c,
	}

	logger = logging.WithFields(ctx, "name", rec.Name)

	if c.Address == nil {
		err := missingOptional(rec.Name, "address")
		logger.Warn("contact field missing", "field", "address", "error", err)
		return rec, 1, nil
	}

	missing := 0
	read := func(part AddressPart, dst *string) {
		v, ok := c.Address.Get(part)
		if !ok {
			missing++
			err := missingOptional(rec.Name, string(part))
			logger.Warn("contact field missing", "field", string(part), "error", err)
			return
		}
		*dst = clean(v)
	}

	read(PartStreet, &rec.Street)
	read(PartExtended, &rec.Extended)
	read(PartCity, &rec.City)
	read(PartRegion, &rec.Region)
	read(PartPostalCode, &rec.Code)
	read(PartCountry, &rec.Country)

	rec.Addr1, rec.Addr2 = SplitStreet(rec.Street)
	rec.Address = FormatAddress(c.Address)

	return rec, missing, nil
}

// ExtractAll extracts every contact in seq, preserving order.
//
// Contacts without an organization are logged and skipped. Any other failure,
// including an error yielded by seq itself, stops the pass and is returned
// together with the records built so far.
func ExtractAll(ctx context.Context, seq iter.Seq2[Contact, error]) ([]*FlatRecord, Stats, error) {
	var (
		records []*FlatRecord
		stats   Stats
	)

	for c, err := range seq {
		if err != nil {
			return records, stats, fmt.Errorf("read contact %d: %w", stats.Read+1, err)
		}
		if err := ctx.Err(); err != nil {
			return records, stats, err
		}
		stats.Read++

		rec, missing, err := extract(ctx, &c)
		switch {
		case errors.Is(err, ErrMissingRequiredField):
			stats.Dropped++
			continue
		case err != nil:
			return records, stats, fmt.Errorf("extract contact %d: %w", stats.Read, err)
		}

		if missing > 0 {
			stats.Incomplete++
		}
		stats.Extracted++
		records = append(records, rec)
	}

	return records, stats, nil
}

// SplitStreet splits a street value into two address lines at the first line
// break. Everything after the first break, further breaks included, stays in
// addr2. A "\r" right before the break is dropped.
func SplitStreet(street string) (addr1, addr2 string) {
	before, after, found := strings.Cut(street, "\n")
	if !found {
		return street, ""
	}
	return strings.TrimSuffix(before, "\r"), after
}

// FormatAddress renders an address as postal lines: box, extended and street
// lines first, then "city, region code", then the country. Blank parts are
// skipped. A nil address renders as "".
func FormatAddress(a Address) string {
	if a == nil {
		return ""
	}

	var lines []string
	for _, part := range []AddressPart{PartPOBox, PartExtended, PartStreet} {
		if v, _ := a.Get(part); v != "" {
			lines = append(lines, clean(v))
		}
	}

	city, _ := a.Get(PartCity)
	region, _ := a.Get(PartRegion)
	code, _ := a.Get(PartPostalCode)
	regionCode := strings.TrimSpace(clean(region) + " " + clean(code))

	switch {
	case city != "" && regionCode != "":
		lines = append(lines, clean(city)+", "+regionCode)
	case city != "":
		lines = append(lines, clean(city))
	case regionCode != "":
		lines = append(lines, regionCode)
	}

	if country, _ := a.Get(PartCountry); country != "" {
		lines = append(lines, clean(country))
	}

	return strings.Join(lines, "\n")
}

// clean normalizes a field value to NFC so decomposed input compares equal
// to its composed form.
func clean(s string) string {
	return norm.NFC.String(s)
}
