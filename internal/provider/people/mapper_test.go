package people

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lu-zhengda/contactsync/internal/domain"
	peopleapi "google.golang.org/api/people/v1"
)

func TestMapContact_Minimal(t *testing.T) {
	p := mapContact(&domain.Contact{GivenName: "Grace", FamilyName: "Hopper"})

	if len(p.Names) != 1 || p.Names[0].GivenName != "Grace" || p.Names[0].FamilyName != "Hopper" {
		t.Fatalf("names = %+v, want Grace Hopper", p.Names)
	}
	collections := map[string]int{
		"phoneNumbers":   len(p.PhoneNumbers),
		"emailAddresses": len(p.EmailAddresses),
		"addresses":      len(p.Addresses),
		"organizations":  len(p.Organizations),
		"birthdays":      len(p.Birthdays),
		"biographies":    len(p.Biographies),
	}
	for name, n := range collections {
		if n != 0 {
			t.Errorf("%s has %d entries, want 0", name, n)
		}
	}
	if p.PhoneNumbers == nil || p.EmailAddresses == nil || p.Birthdays == nil || p.Biographies == nil {
		t.Error("expected empty collections to be non-nil slices")
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	if strings.Contains(string(data), "null") {
		t.Errorf("payload %s contains null placeholders", data)
	}
	if !strings.Contains(string(data), `"givenName":"Grace"`) {
		t.Errorf("payload %s missing givenName", data)
	}
}

func TestMapContact_Full(t *testing.T) {
	c := &domain.Contact{
		GivenName:    "Ada",
		FamilyName:   "Lovelace",
		Phones:       []domain.LabeledValue{{Value: "+44 1", Label: "mobile"}, {Value: "+44 2", Label: "work"}},
		Emails:       []domain.LabeledValue{{Value: "ada@example.com", Label: "home"}},
		Address:      domain.PostalAddress{City: "London", Country: "UK"},
		Organization: domain.Organization{Name: "Analytical Engines", Title: "Programmer"},
		Birthday:     &domain.Date{Year: 1990, Month: 7, Day: 15},
		Notes:        "First programmer",
	}
	p := mapContact(c)

	if len(p.PhoneNumbers) != 2 || p.PhoneNumbers[1].Value != "+44 2" || p.PhoneNumbers[1].Type != "work" {
		t.Errorf("phones = %+v", p.PhoneNumbers)
	}
	if len(p.EmailAddresses) != 1 || p.EmailAddresses[0].Type != "home" {
		t.Errorf("emails = %+v", p.EmailAddresses)
	}
	if len(p.Addresses) != 1 || p.Addresses[0].City != "London" || p.Addresses[0].Country != "UK" {
		t.Errorf("addresses = %+v", p.Addresses)
	}
	if len(p.Organizations) != 1 || p.Organizations[0].Title != "Programmer" {
		t.Errorf("organizations = %+v", p.Organizations)
	}
	if len(p.Birthdays) != 1 {
		t.Fatalf("birthdays = %+v", p.Birthdays)
	}
	if d := p.Birthdays[0].Date; d.Year != 1990 || d.Month != 7 || d.Day != 15 {
		t.Errorf("birthday = %+v, want 1990-07-15", d)
	}
	if len(p.Biographies) != 1 || p.Biographies[0].Value != "First programmer" {
		t.Errorf("biographies = %+v", p.Biographies)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		person *peopleapi.Person
		want   string
	}{
		{"display name", &peopleapi.Person{Names: []*peopleapi.Name{{DisplayName: "Ada L."}}}, "Ada L."},
		{"given and family", &peopleapi.Person{Names: []*peopleapi.Name{{GivenName: "Ada", FamilyName: "Lovelace"}}}, "Ada Lovelace"},
		{"no names", &peopleapi.Person{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayName(tt.person); got != tt.want {
				t.Errorf("displayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
