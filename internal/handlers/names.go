package handlers

import (
	"context"
	"strings"
	"time"

	bizmodels "filer/internal/business/models"
)

func changeOfName(_ context.Context, in Input) (Result, error) {
	name := newLegalName(in.Section)
	if name == "" {
		return Result{}, fatal("change of name requires the new legal name")
	}
	summary := in.Meta.Section(in.Type)
	summary.Set("fromLegalName", in.Business.LegalName)
	summary.Set("toLegalName", name)
	return Result{Changes: []bizmodels.Change{bizmodels.SetLegalName{Name: name}}}, nil
}

// alteration changes a company's type, name, share structure or
// translations. Each special resolution date that authorized the share
// structure is recorded.
func alteration(_ context.Context, in Input) (Result, error) {
	var changes []bizmodels.Change
	summary := in.Meta.Section(in.Type)

	toType := in.Section.Lookup("business").String("legalType")
	if toType == "" {
		toType = in.Section.Lookup("nameRequest").String("legalType")
	}
	if toType != "" && bizmodels.LegalType(strings.ToUpper(toType)) != in.Business.LegalType {
		lt := bizmodels.LegalType(strings.ToUpper(toType))
		if lt.IsFirm() || in.Business.LegalType.IsFirm() {
			return Result{}, fatalf("alteration cannot change %s to %s", in.Business.LegalType, lt)
		}
		summary.Set("fromLegalType", string(in.Business.LegalType))
		summary.Set("toLegalType", string(lt))
		changes = append(changes, bizmodels.SetLegalType{Type: lt})
	}
	if name := newLegalName(in.Section); name != "" && name != in.Business.LegalName {
		summary.Set("fromLegalName", in.Business.LegalName)
		summary.Set("toLegalName", name)
		changes = append(changes, bizmodels.SetLegalName{Name: name})
	}
	if ss := in.Section.Object("shareStructure"); ss != nil {
		changes = append(changes, bizmodels.ReplaceShareStructure{Classes: parseShareClasses(ss)})
		for _, d := range stringList(ss, "resolutionDates") {
			r, ok := parseResolutionDate(d)
			if !ok {
				return Result{}, fatalf("invalid resolution date %q", d)
			}
			r.FilingID = in.Filing.ID
			changes = append(changes, bizmodels.AddResolution{Resolution: r})
		}
	}
	if _, ok := in.Section.Get("nameTranslations"); ok {
		changes = append(changes, bizmodels.ReplaceAliases{
			Type:    bizmodels.AliasTranslation,
			Aliases: stringList(in.Section, "nameTranslations"),
		})
	}
	if len(changes) == 0 {
		return Result{}, fatal("alteration does not change anything")
	}
	return Result{Changes: changes}, nil
}

// transition restates a pre-existing company's records under the current
// act: offices, directors, share structure and translations.
func transition(_ context.Context, in Input) (Result, error) {
	offices := parseOffices(in.Section.Object("offices"))
	if len(offices) == 0 {
		return Result{}, fatal("transition requires the registered and records offices")
	}
	eff := effectiveDate(in)
	var changes []bizmodels.Change
	for _, o := range offices {
		changes = append(changes, bizmodels.UpsertOffice{Office: o})
	}
	if parties := parseParties(in.Section, eff); len(parties) > 0 {
		changes = append(changes, bizmodels.CeaseAllRoles{Roles: []bizmodels.RoleType{bizmodels.RoleDirector}, Date: eff})
		for _, p := range parties {
			p.FilingID = in.Filing.ID
			changes = append(changes, bizmodels.AppointParty{Role: p})
		}
	}
	if ss := in.Section.Object("shareStructure"); ss != nil {
		changes = append(changes, bizmodels.ReplaceShareStructure{Classes: parseShareClasses(ss)})
	}
	if _, ok := in.Section.Get("nameTranslations"); ok {
		changes = append(changes, bizmodels.ReplaceAliases{
			Type:    bizmodels.AliasTranslation,
			Aliases: stringList(in.Section, "nameTranslations"),
		})
	}
	in.Meta.Section(in.Type).Set("hasProvisions", in.Section.Bool("hasProvisions"))
	return Result{Changes: changes}, nil
}

func parseResolutionDate(s string) (bizmodels.Resolution, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return bizmodels.Resolution{}, false
	}
	return bizmodels.Resolution{Type: bizmodels.ResolutionSpecial, Date: t}, true
}
