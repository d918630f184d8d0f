package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"   ":                                "",
		"Lakeside Family Dentistry":          "lakeside family dentistry",
		"LAKESIDE FAMILY DENTISTRY, PLLC":    "lakeside family dentistry",
		"Lakeside   Family Dentistry L.L.C.": "lakeside family dentistry",
		"Smith & Jones Dental":               "smith and jones dental",
		"Joe's Dental Care, Inc.":            "joes dental care",
		"Clínica Dental Sonrisa":             "clinica dental sonrisa",
		"Bright-Smile Dental Co":             "bright smile dental",
		"Harbor Dental Group DBA":            "harbor dental group",
		"Kim DDS PC":                         "kim dds",
		"LLC":                                "llc",
		"STRASSE Zahnärzte":                  "strasse zahnarzte",
	}
	for in, want := range cases {
		assert.Equal(t, want, Name(in), in)
	}
}

func TestName_FoldsSharpS(t *testing.T) {
	assert.Equal(t, Name("STRASSE"), Name("Straße"))
}

func TestPostalCode(t *testing.T) {
	assert.Equal(t, "78701", PostalCode("78701"))
	assert.Equal(t, "78701", PostalCode("78701-1234"))
	assert.Equal(t, "78701", PostalCode("787010000"))
	assert.Equal(t, "", PostalCode("7870"))
	assert.Equal(t, "", PostalCode("ABCDE"))
	assert.Equal(t, "", PostalCode("787011"))
}

func TestLocality(t *testing.T) {
	assert.Equal(t, "san jose,CA", Locality("  San José ", "ca"))
	assert.Equal(t, ",NY", Locality("", "NY"))
}

func TestTitleTokens(t *testing.T) {
	assert.Equal(t, "dental receptionist", TitleTokens("Receptionist, Dental"))
	assert.Equal(t, TitleTokens("Dental Receptionist"), TitleTokens("dental  RECEPTIONIST"))
	assert.Equal(t, "desk front receptionist", TitleTokens("Front Desk / Receptionist - Front Desk"))
	assert.Equal(t, "", TitleTokens(""))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "(512) 555-0142", Phone("512-555-0142"))
	assert.Equal(t, "(512) 555-0142", Phone("+1 (512) 555 0142"))
	assert.Equal(t, "(512) 555-0142", Phone("5125550142"))
	assert.Equal(t, "", Phone("555-0142"))
	assert.Equal(t, "", Phone(""))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "frontdesk@lakeside.example", Email(" mailto:FrontDesk@Lakeside.example "))
	assert.Equal(t, "", Email("not-an-email"))
	assert.Equal(t, "", Email("a@b"))
	assert.Equal(t, "", Email("@lakeside.example"))
	assert.Equal(t, "", Email("a b@c.com"))
}
