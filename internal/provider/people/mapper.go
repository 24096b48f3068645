package people

import (
	"strings"

	"github.com/lu-zhengda/contactsync/internal/domain"
	peopleapi "google.golang.org/api/people/v1"
)

// mapContact converts a source record to a People API Person. Absent optional
// fields become empty collections; names are always present.
func mapContact(c *domain.Contact) *peopleapi.Person {
	p := &peopleapi.Person{
		Names: []*peopleapi.Name{{
			GivenName:  c.GivenName,
			MiddleName: c.MiddleName,
			FamilyName: c.FamilyName,
		}},
		PhoneNumbers:   make([]*peopleapi.PhoneNumber, 0, len(c.Phones)),
		EmailAddresses: make([]*peopleapi.EmailAddress, 0, len(c.Emails)),
		Addresses:      []*peopleapi.Address{},
		Organizations:  []*peopleapi.Organization{},
		Birthdays:      []*peopleapi.Birthday{},
		Biographies:    []*peopleapi.Biography{},
	}

	for _, ph := range c.Phones {
		p.PhoneNumbers = append(p.PhoneNumbers, &peopleapi.PhoneNumber{Value: ph.Value, Type: ph.Label})
	}
	for _, em := range c.Emails {
		p.EmailAddresses = append(p.EmailAddresses, &peopleapi.EmailAddress{Value: em.Value, Type: em.Label})
	}
	if a := c.Address; !a.IsZero() {
		p.Addresses = append(p.Addresses, &peopleapi.Address{
			FormattedValue: a.Formatted,
			StreetAddress:  a.Street,
			City:           a.City,
			PostalCode:     a.PostalCode,
			Region:         a.Region,
			Country:        a.Country,
		})
	}
	if o := c.Organization; !o.IsZero() {
		p.Organizations = append(p.Organizations, &peopleapi.Organization{
			Name:       o.Name,
			Title:      o.Title,
			Department: o.Department,
		})
	}
	if b := c.Birthday; b != nil {
		p.Birthdays = append(p.Birthdays, &peopleapi.Birthday{
			Date: &peopleapi.Date{
				Year:  int64(b.Year),
				Month: int64(b.Month),
				Day:   int64(b.Day),
			},
		})
	}
	if c.Notes != "" {
		p.Biographies = append(p.Biographies, &peopleapi.Biography{Value: c.Notes, ContentType: "TEXT_PLAIN"})
	}
	return p
}

// displayName picks the first display name of a listed person.
func displayName(p *peopleapi.Person) string {
	for _, n := range p.Names {
		if n == nil {
			continue
		}
		if n.DisplayName != "" {
			return n.DisplayName
		}
		if name := strings.TrimSpace(n.GivenName + " " + n.FamilyName); name != "" {
			return name
		}
	}
	return ""
}
