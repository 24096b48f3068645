// Package source reads the tabular contact export into normalized records.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

// Column headers of the Google Contacts CSV export.
const (
	colFirstName  = "First Name"
	colMiddleName = "Middle Name"
	colLastName   = "Last Name"
	colBirthday   = "Birthday"
	colNotes      = "Notes"

	colAddressFormatted  = "Address 1 - Formatted"
	colAddressStreet     = "Address 1 - Street"
	colAddressCity       = "Address 1 - City"
	colAddressPostalCode = "Address 1 - Postal Code"
	colAddressRegion     = "Address 1 - Region"
	colAddressCountry    = "Address 1 - Country"

	colOrgName       = "Organization Name"
	colOrgTitle      = "Organization Title"
	colOrgDepartment = "Organization Department"
)

const maxMultiValues = 2

// ReadContacts reads the export at path.
func ReadContacts(path string) ([]domain.Contact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open contact export: %v", domain.ErrSourceFormat, err)
	}
	defer f.Close()

	contacts, err := Read(f)
	if err != nil {
		return nil, err
	}
	log.Printf("[source] parsed %d contacts from %s", len(contacts), path)
	return contacts, nil
}

// Read parses CSV rows keyed by the header row. Malformed rows are logged and
// skipped; only an unreadable header or an I/O failure aborts the read.
func Read(r io.Reader) ([]domain.Contact, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: contact export has no header row", domain.ErrSourceFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header row: %v", domain.ErrSourceFormat, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[strings.TrimSpace(name)] = i
	}

	var contacts []domain.Contact
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				log.Printf("[source] skipping malformed row at line %d: %v", pe.StartLine, pe.Err)
				continue
			}
			return nil, fmt.Errorf("%w: failed to read contact export: %v", domain.ErrSourceFormat, err)
		}
		line, _ := cr.FieldPos(0)
		contacts = append(contacts, mapRow(row{columns: columns, fields: fields}, line))
	}
	return contacts, nil
}

type row struct {
	columns map[string]int
	fields  []string
}

func (r row) get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// first returns the value of the first listed column that is non-empty.
func (r row) first(columns ...string) string {
	for _, c := range columns {
		if v := r.get(c); v != "" {
			return v
		}
	}
	return ""
}

func mapRow(r row, line int) domain.Contact {
	c := domain.Contact{
		Row:        line,
		GivenName:  r.get(colFirstName),
		MiddleName: r.get(colMiddleName),
		FamilyName: r.get(colLastName),
		Phones:     labeledValues(r, "Phone", domain.DefaultPhoneLabel),
		Emails:     labeledValues(r, "E-mail", domain.DefaultEmailLabel),
		Address: domain.PostalAddress{
			Formatted:  r.get(colAddressFormatted),
			Street:     r.get(colAddressStreet),
			City:       r.get(colAddressCity),
			PostalCode: r.get(colAddressPostalCode),
			Region:     r.get(colAddressRegion),
			Country:    r.get(colAddressCountry),
		},
		Organization: domain.Organization{
			Name:       r.get(colOrgName),
			Title:      r.get(colOrgTitle),
			Department: r.get(colOrgDepartment),
		},
		Birthday: ParseBirthday(r.get(colBirthday)),
		Notes:    r.get(colNotes),
	}
	return c
}

// labeledValues collects "<kind> N - Value" columns with their labels.
// Older exports name the label column "Type".
func labeledValues(r row, kind, defaultLabel string) []domain.LabeledValue {
	values := make([]domain.LabeledValue, 0, maxMultiValues)
	for i := 1; i <= maxMultiValues; i++ {
		prefix := fmt.Sprintf("%s %d - ", kind, i)
		value := r.get(prefix + "Value")
		if value == "" {
			continue
		}
		label := r.first(prefix+"Label", prefix+"Type")
		if label == "" {
			label = defaultLabel
		}
		values = append(values, domain.LabeledValue{Value: value, Label: label})
	}
	return values
}
