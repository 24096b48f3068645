package domain

import "strings"

const (
	DefaultPhoneLabel = "mobile"
	DefaultEmailLabel = "home"
)

type LabeledValue struct {
	Value string
	Label string
}

type PostalAddress struct {
	Formatted  string
	Street     string
	City       string
	PostalCode string
	Region     string
	Country    string
}

func (a PostalAddress) IsZero() bool {
	return a == PostalAddress{}
}

type Organization struct {
	Name       string
	Title      string
	Department string
}

func (o Organization) IsZero() bool {
	return o == Organization{}
}

// Date is a possibly partial calendar date. Year 0 means the year is unknown.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Contact is one normalized row of the contact export.
type Contact struct {
	Row          int
	GivenName    string
	MiddleName   string
	FamilyName   string
	Phones       []LabeledValue
	Emails       []LabeledValue
	Address      PostalAddress
	Organization Organization
	Birthday     *Date
	Notes        string
}

// DisplayName joins the populated name parts.
func (c *Contact) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.GivenName, c.MiddleName, c.FamilyName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
