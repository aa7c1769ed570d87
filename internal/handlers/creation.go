package handlers

import (
	"context"
	"strings"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
)

// CreationLegalType returns the legal type of the business a creation filing
// brings into existence. The dispatcher needs it to number the business
// before any handler runs.
func CreationLegalType(f *models.Filing, ft models.FilingType) (bizmodels.LegalType, error) {
	lt := f.Section(ft).Lookup("nameRequest").String("legalType")
	if lt == "" {
		lt = f.Body().Object(models.SectionBusiness).String("legalType")
	}
	if lt == "" {
		return "", fatalf("%s does not declare a legal type", ft)
	}
	return bizmodels.LegalType(strings.ToUpper(lt)), nil
}

// numberedName is the name of a company incorporated without a name request.
func numberedName(b *bizmodels.Business) string {
	number := strings.TrimLeft(b.Identifier, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	switch b.LegalType {
	case bizmodels.LegalTypeULC, bizmodels.LegalTypeCUL:
		return number + " B.C. UNLIMITED LIABILITY COMPANY"
	case bizmodels.LegalTypeCC, bizmodels.LegalTypeCCC:
		return number + " B.C. COMMUNITY CONTRIBUTION COMPANY"
	default:
		return number + " B.C. LTD."
	}
}

// formationChanges builds a new company from the offices, parties, share
// structure and translations in a section.
func formationChanges(in Input, offices []bizmodels.Office, parties []bizmodels.PartyRole) ([]bizmodels.Change, error) {
	if in.Business.State != "" && in.Business.State != bizmodels.StateActive {
		return nil, fatalf("%s cannot form business %s in state %s", in.Type, in.Business.Identifier, in.Business.State)
	}
	name := newLegalName(in.Section)
	if name == "" {
		if in.Business.LegalType.IsFirm() {
			return nil, fatalf("%s requires a business name", in.Type)
		}
		name = numberedName(in.Business)
	}
	if len(offices) == 0 {
		return nil, fatalf("%s requires at least one office", in.Type)
	}
	if len(parties) == 0 {
		return nil, fatalf("%s requires at least one party", in.Type)
	}

	eff := effectiveDate(in)
	changes := []bizmodels.Change{
		bizmodels.SetLegalName{Name: name},
		bizmodels.SetFoundingDate{Date: eff},
		bizmodels.SetState{State: bizmodels.StateActive, FilingID: in.Filing.ID},
	}
	for _, o := range offices {
		changes = append(changes, bizmodels.UpsertOffice{Office: o})
	}
	for _, p := range parties {
		p.FilingID = in.Filing.ID
		changes = append(changes, bizmodels.AppointParty{Role: p})
	}
	if ss := in.Section.Object("shareStructure"); ss != nil {
		changes = append(changes, bizmodels.ReplaceShareStructure{Classes: parseShareClasses(ss)})
	}
	if translations := stringList(in.Section, "nameTranslations"); len(translations) > 0 {
		changes = append(changes, bizmodels.ReplaceAliases{Type: bizmodels.AliasTranslation, Aliases: translations})
	}

	summary := in.Meta.Section(in.Type)
	summary.Set("identifier", in.Business.Identifier)
	summary.Set("legalName", name)
	summary.Set("legalType", string(in.Business.LegalType))
	return changes, nil
}

func incorporationApplication(_ context.Context, in Input) (Result, error) {
	changes, err := formationChanges(in,
		parseOffices(in.Section.Object("offices")),
		parseParties(in.Section, effectiveDate(in)))
	if err != nil {
		return Result{}, err
	}
	return Result{Changes: changes}, nil
}

func registration(_ context.Context, in Input) (Result, error) {
	if !in.Business.LegalType.IsFirm() {
		return Result{}, fatalf("registration is only valid for firms, not %s", in.Business.LegalType)
	}
	parties := parseParties(in.Section, effectiveDate(in))
	owners := 0
	for _, p := range parties {
		if p.Role == bizmodels.RoleProprietor || p.Role == bizmodels.RolePartner {
			owners++
		}
	}
	if owners == 0 {
		return Result{}, fatal("registration requires a proprietor or partner")
	}
	changes, err := formationChanges(in, parseOffices(in.Section.Object("offices")), parties)
	if err != nil {
		return Result{}, err
	}
	if start, ok := in.Section.Date("startDate"); ok {
		changes = append(changes, bizmodels.SetFoundingDate{Date: start})
	}
	if naics := in.Section.Lookup("business", "naics"); naics != nil {
		changes = append(changes, bizmodels.SetNAICS{Code: naics.String("naicsCode"), Description: naics.String("naicsDescription")})
	}
	return Result{Changes: changes}, nil
}

func continuationIn(_ context.Context, in Input) (Result, error) {
	foreign := parseJurisdiction(in.Section.Object("foreignJurisdiction"))
	if foreign == nil {
		return Result{}, fatal("continuation in requires the foreign jurisdiction")
	}
	changes, err := formationChanges(in,
		parseOffices(in.Section.Object("offices")),
		parseParties(in.Section, effectiveDate(in)))
	if err != nil {
		return Result{}, err
	}
	changes = append(changes, bizmodels.SetJurisdiction{Jurisdiction: foreign})
	if foreign.IncorporationDate != nil {
		changes = append(changes, bizmodels.SetFoundingDate{Date: *foreign.IncorporationDate})
	}
	in.Meta.Section(in.Type).Set("foreignJurisdiction", foreign.Country+"-"+foreign.Region)
	return Result{Changes: changes}, nil
}

const (
	amalgamationRegular    = "regular"
	amalgamationHorizontal = "horizontal"
	amalgamationVertical   = "vertical"

	roleAmalgamating = "amalgamating"
	roleHolding      = "holding"
	rolePrimary      = "primary"
	roleForeign      = "foreign"
)

// amalgamationApplication forms a new company from existing ones. Local
// amalgamating businesses become historical in the same transaction. Short
// form amalgamations inherit offices, directors and share structure from the
// primary or holding company when the section omits them.
func amalgamationApplication(ctx context.Context, in Input) (Result, error) {
	kind := in.Section.String("type")
	if kind == "" {
		kind = amalgamationRegular
	}

	var (
		related      []RelatedChanges
		identifiers  []any
		surviving    *bizmodels.Business
		participants int
	)
	eff := effectiveDate(in)
	for _, ab := range in.Section.Objects("amalgamatingBusinesses") {
		participants++
		role := strings.ToLower(ab.String("role"))
		if role == roleForeign {
			continue
		}
		identifier := ab.String("identifier")
		if identifier == "" {
			return Result{}, fatal("amalgamating business is missing its identifier")
		}
		b, err := in.Reader.LoadBusinessByIdentifier(ctx, identifier)
		if err != nil {
			return Result{}, readErr(err, "load amalgamating business "+identifier)
		}
		if b.State != bizmodels.StateActive {
			return Result{}, fatalf("amalgamating business %s is %s", identifier, b.State)
		}
		if role == rolePrimary || role == roleHolding {
			surviving = b
		}
		identifiers = append(identifiers, identifier)
		related = append(related, RelatedChanges{
			Identifier: identifier,
			Changes: []bizmodels.Change{
				bizmodels.SetState{State: bizmodels.StateHistorical, FilingID: in.Filing.ID},
				bizmodels.SetDissolutionDate{Date: &eff},
			},
		})
	}
	if participants < 2 {
		return Result{}, fatal("amalgamation requires at least two amalgamating businesses")
	}

	offices := parseOffices(in.Section.Object("offices"))
	parties := parseParties(in.Section, eff)
	if kind != amalgamationRegular {
		if surviving == nil {
			return Result{}, fatalf("%s amalgamation requires a primary or holding business", kind)
		}
		if len(offices) == 0 {
			offices = append(offices, surviving.Offices...)
		}
		if !containsRole(parties, bizmodels.RoleDirector) {
			for _, d := range surviving.ActiveRoles(bizmodels.RoleDirector) {
				parties = append(parties, bizmodels.PartyRole{Role: d.Role, Party: d.Party, AppointmentDate: eff})
			}
		}
	}

	changes, err := formationChanges(in, offices, parties)
	if err != nil {
		return Result{}, err
	}
	if kind != amalgamationRegular && in.Section.Object("shareStructure") == nil {
		changes = append(changes, bizmodels.ReplaceShareStructure{Classes: surviving.ShareClasses})
	}

	summary := in.Meta.Section(in.Type)
	summary.Set("type", kind)
	summary.Set("amalgamatingBusinesses", identifiers)
	return Result{Changes: changes, Related: related}, nil
}

func containsRole(parties []bizmodels.PartyRole, role bizmodels.RoleType) bool {
	for _, p := range parties {
		if p.Role == role {
			return true
		}
	}
	return false
}
