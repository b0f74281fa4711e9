package domain

type PersonaID string

const (
	PersonaPM     PersonaID = "pm"
	PersonaImpl   PersonaID = "impl"
	PersonaReview PersonaID = "review"
	PersonaDocs   PersonaID = "docs"
)

// Personas is the fixed, closed set of persona identifiers. Every session
// document contains exactly these entries after a successful read.
var Personas = map[PersonaID]string{
	PersonaPM:     "Project Manager",
	PersonaImpl:   "Implementation Engineer",
	PersonaReview: "Code Review Engineer",
	PersonaDocs:   "Technical Writer",
}

// PersonaOrder is the stable layout/display order of the fixed persona set.
var PersonaOrder = []PersonaID{PersonaPM, PersonaImpl, PersonaReview, PersonaDocs}

func (id PersonaID) Valid() bool {
	_, ok := Personas[id]
	return ok
}

func (id PersonaID) DisplayName() string {
	if name, ok := Personas[id]; ok {
		return name
	}
	return string(id)
}
