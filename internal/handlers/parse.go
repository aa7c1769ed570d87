package handlers

import (
	"strconv"
	"strings"
	"time"

	bizmodels "filer/internal/business/models"
	"filer/pkg/document"
	platformstrings "filer/pkg/platform/strings"
)

var officeTypes = []bizmodels.OfficeType{
	bizmodels.OfficeRegistered,
	bizmodels.OfficeRecords,
	bizmodels.OfficeBusiness,
	bizmodels.OfficeCustodial,
	bizmodels.OfficeLiquidationRecord,
}

func parseAddress(obj *document.Object) *bizmodels.Address {
	if obj == nil || obj.Len() == 0 {
		return nil
	}
	return &bizmodels.Address{
		StreetAddress:           obj.String("streetAddress"),
		StreetAddressAdditional: obj.String("streetAddressAdditional"),
		AddressCity:             obj.String("addressCity"),
		AddressRegion:           obj.String("addressRegion"),
		AddressCountry:          obj.String("addressCountry"),
		PostalCode:              obj.String("postalCode"),
		DeliveryInstructions:    obj.String("deliveryInstructions"),
	}
}

// parseOffices reads an "offices" object keyed by office type. Unknown keys
// are ignored.
func parseOffices(obj *document.Object) []bizmodels.Office {
	var out []bizmodels.Office
	for _, t := range officeTypes {
		o := obj.Object(string(t))
		if o == nil {
			continue
		}
		out = append(out, bizmodels.Office{
			Type:            t,
			DeliveryAddress: parseAddress(o.Object("deliveryAddress")),
			MailingAddress:  parseAddress(o.Object("mailingAddress")),
		})
	}
	return out
}

func parseParty(obj *document.Object) bizmodels.Party {
	officer := obj.Object("officer")
	if officer == nil {
		officer = obj
	}
	p := bizmodels.Party{
		Type:              bizmodels.PartyType(strings.ToLower(officer.String("partyType"))),
		FirstName:         officer.String("firstName"),
		MiddleInitial:     officer.String("middleInitial"),
		LastName:          officer.String("lastName"),
		OrganizationName:  officer.String("organizationName"),
		IdentifyingNumber: officer.String("identifyingNumber"),
		Email:             officer.String("email"),
		DeliveryAddress:   parseAddress(obj.Object("deliveryAddress")),
		MailingAddress:    parseAddress(obj.Object("mailingAddress")),
	}
	if p.Type == "" {
		p.Type = bizmodels.PartyPerson
		if p.OrganizationName != "" {
			p.Type = bizmodels.PartyOrganization
		}
	}
	return p
}

// normalizeRole maps payload spellings such as "Completing Party" to role
// types.
func normalizeRole(s string) bizmodels.RoleType {
	return bizmodels.RoleType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
}

// parseParties expands a "parties" array into one role per declared role.
func parseParties(section *document.Object, fallback time.Time) []bizmodels.PartyRole {
	var out []bizmodels.PartyRole
	for _, obj := range section.Objects("parties") {
		party := parseParty(obj)
		for _, r := range obj.Objects("roles") {
			appointed, ok := r.Date("appointmentDate")
			if !ok {
				appointed = fallback
			}
			out = append(out, bizmodels.PartyRole{
				Role:            normalizeRole(r.String("roleType")),
				Party:           party,
				AppointmentDate: appointed,
			})
		}
	}
	return out
}

func parseShareClasses(obj *document.Object) []bizmodels.ShareClass {
	var out []bizmodels.ShareClass
	for _, sc := range obj.Objects("shareClasses") {
		class := bizmodels.ShareClass{
			Name:                    sc.String("name"),
			Priority:                intOf(sc, "priority"),
			HasMaximumShares:        sc.Bool("hasMaximumShares"),
			MaxNumberOfShares:       int64Ptr(sc, "maxNumberOfShares"),
			HasParValue:             sc.Bool("hasParValue"),
			ParValue:                floatPtr(sc, "parValue"),
			Currency:                sc.String("currency"),
			HasRightsOrRestrictions: sc.Bool("hasRightsOrRestrictions"),
		}
		for _, s := range sc.Objects("series") {
			class.Series = append(class.Series, bizmodels.ShareSeries{
				Name:                    s.String("name"),
				Priority:                intOf(s, "priority"),
				HasMaximumShares:        s.Bool("hasMaximumShares"),
				MaxNumberOfShares:       int64Ptr(s, "maxNumberOfShares"),
				HasRightsOrRestrictions: s.Bool("hasRightsOrRestrictions"),
			})
		}
		out = append(out, class)
	}
	return out
}

func parseJurisdiction(obj *document.Object) *bizmodels.Jurisdiction {
	if obj == nil || obj.String("country") == "" {
		return nil
	}
	j := &bizmodels.Jurisdiction{
		Country:    strings.ToUpper(obj.String("country")),
		Region:     strings.ToUpper(obj.String("region")),
		Identifier: obj.String("identifier"),
		LegalName:  obj.String("legalName"),
	}
	if d, ok := obj.Date("incorporationDate"); ok {
		j.IncorporationDate = &d
	}
	return j
}

// stringList returns the string elements of an array member.
func stringList(obj *document.Object, key string) []string {
	var out []string
	for _, v := range obj.List(key) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case *document.Object:
			if name := t.String("name"); name != "" {
				out = append(out, name)
			}
		}
	}
	return platformstrings.DedupeAndTrim(out)
}

// newLegalName returns the name requested by a section, looking at the name
// request first.
func newLegalName(section *document.Object) string {
	if name := section.Lookup("nameRequest").String("legalName"); name != "" {
		return name
	}
	return section.String("legalName")
}

func intOf(obj *document.Object, key string) int {
	n, _ := obj.Int(key)
	return int(n)
}

func int64Ptr(obj *document.Object, key string) *int64 {
	n, ok := obj.Int(key)
	if !ok {
		return nil
	}
	return &n
}

func floatPtr(obj *document.Object, key string) *float64 {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case interface{ String() string }:
		s = t.String()
	default:
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func datePtr(obj *document.Object, key string) *time.Time {
	d, ok := obj.Date(key)
	if !ok {
		return nil
	}
	return &d
}
