// Package alertnote builds the advisory shown to staff when a client falls
// outside the clinic's service profile.
package alertnote

import "strings"

// Profile carries the client and consultation attributes the note looks at.
type Profile struct {
	AcademicInstruction string
	Profession          string
	IncomeLevel         string
	FamilyIncome        string
	Subject             string
	City                string
}

var (
	highInstruction = set("Superior", "Postgrado", "Doctorado")
	highProfession  = set("Empleado Privado", "Patrono", "Socio")
	highIncome      = set("3 SBU", "4 SBU", "5 SBU", ">5 SBU")
	uncoveredMatter = set("Tierras", "Administrativo", "Constitucional")
)

const (
	socioeconomicHeading = "No cumple perfil socio económico:"
	subjectHeading       = "Solicita materia no atendida por el CJG:"
)

// Builder renders notes for one clinic. HomeCity is the only city whose
// residents are inside the service area.
type Builder struct {
	HomeCity string
}

func New(homeCity string) Builder { return Builder{HomeCity: homeCity} }

// Build returns the HTML fragment for p, or "" when no clause applies.
// Clauses always appear as socioeconomic, subject, residence.
func (b Builder) Build(p Profile) string {
	var clauses []string
	if c := socioeconomicClause(p); c != "" {
		clauses = append(clauses, c)
	}
	if has(uncoveredMatter, p.Subject) {
		clauses = append(clauses, "<br><strong>"+subjectHeading+"</strong><br>El usuario busca atención en la materia de: "+strings.TrimSpace(p.Subject)+".")
	}
	if b.outsideArea(p.City) {
		clauses = append(clauses, "<br><strong>Reside fuera de "+b.HomeCity+":</strong><br>El usuario reside en: "+strings.TrimSpace(p.City)+".")
	}
	return strings.Join(clauses, "<br>")
}

// outsideArea treats an unrecorded city as outside the service area.
func (b Builder) outsideArea(city string) bool {
	if b.HomeCity == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(city), strings.TrimSpace(b.HomeCity))
}

func socioeconomicClause(p Profile) string {
	var sentences []string
	if has(highInstruction, p.AcademicInstruction) {
		sentences = append(sentences, "<br>El usuario tiene una instrucción: "+strings.TrimSpace(p.AcademicInstruction)+".")
	}
	if has(highProfession, p.Profession) {
		sentences = append(sentences, "<br>El usuario tiene una profesión: "+strings.TrimSpace(p.Profession)+".")
	}
	if has(highIncome, p.IncomeLevel) {
		sentences = append(sentences, "<br>El usuario tiene un nivel de ingresos: "+strings.TrimSpace(p.IncomeLevel)+".")
	}
	if has(highIncome, p.FamilyIncome) {
		sentences = append(sentences, "<br>El usuario tiene un ingreso familiar: "+strings.TrimSpace(p.FamilyIncome)+".")
	}
	if len(sentences) == 0 {
		return ""
	}
	return "<strong>" + socioeconomicHeading + "</strong>" + strings.Join(sentences, " ")
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func has(s map[string]struct{}, v string) bool {
	_, ok := s[strings.TrimSpace(v)]
	return ok
}
