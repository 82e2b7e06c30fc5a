// Package screen renders the wizard's current stage as markdown. The same
// text is served over HTTP and drawn in the terminal wizard.
package screen

import (
	"fmt"
	"math"
	"strings"

	"medflow/internal/medical"
	"medflow/internal/workflow"
)

const Disclaimer = "This is a demonstration application. Do not use for actual medical diagnosis. " +
	"Always consult with a healthcare professional for medical advice."

// Specialists looks up display data for specialist types.
type Specialists interface {
	Specialists() []medical.SpecialistInfo
	Specialist(t medical.SpecialistType) (medical.SpecialistInfo, bool)
}

type Renderer struct {
	dir Specialists
}

func NewRenderer(dir Specialists) *Renderer {
	return &Renderer{dir: dir}
}

func (r *Renderer) Render(s *workflow.Session) string {
	var b strings.Builder
	b.WriteString("# MedFlow\n\n")
	writeProgress(&b, s.Stage)

	switch s.Stage {
	case workflow.StagePatientInput:
		writePatientInput(&b, s)
	case workflow.StageSymptomAnalysis:
		writeSymptomAnalysis(&b, s)
	case workflow.StageKnowledgeRetrieval:
		writeKnowledgeRetrieval(&b, s)
	case workflow.StageSpecialistRouting:
		r.writeSpecialistRouting(&b, s)
	case workflow.StageFinalDiagnosis:
		r.writeFinalDiagnosis(&b, s)
	}

	if s.Error != "" {
		fmt.Fprintf(&b, "\n> **Error:** %s\n", s.Error)
	}
	fmt.Fprintf(&b, "\n---\n\n_%s_\n", Disclaimer)
	return b.String()
}

func writeProgress(b *strings.Builder, current workflow.Stage) {
	ci := current.Index()
	for i, st := range workflow.Stages {
		marker := "[ ]"
		switch {
		case i < ci:
			marker = "[x]"
		case i == ci:
			marker = "[>]"
		}
		label := st.Label()
		if i == ci {
			label = "**" + label + "**"
		}
		fmt.Fprintf(b, "%d. %s %s\n", i+1, marker, label)
	}
	b.WriteString("\n")
}

func percent(p float64) int {
	return int(math.Round(p * 100))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writePatient(b *strings.Builder, p medical.PatientInfo) {
	age := "not set"
	if p.Age > 0 {
		age = fmt.Sprint(p.Age)
	}
	gender := "not set"
	if p.Gender != medical.GenderUnset {
		gender = capitalize(string(p.Gender))
	}
	fmt.Fprintf(b, "- **Age:** %s\n- **Gender:** %s\n", age, gender)
	if len(p.MedicalHistory) > 0 {
		fmt.Fprintf(b, "- **Medical History:** %s\n", strings.Join(p.MedicalHistory, ", "))
	}
}

func writeSymptoms(b *strings.Builder, symptoms []medical.Symptom) {
	if len(symptoms) == 0 {
		b.WriteString("No symptoms added yet.\n")
		return
	}
	b.WriteString("| Symptom | Severity | Duration | Notes |\n|---|---|---|---|\n")
	for _, s := range symptoms {
		fmt.Fprintf(b, "| %s | %d/10 (%s) | %s | %s |\n",
			s.Name, s.Severity, capitalize(medical.SeverityBand(s.Severity)), s.Duration, s.Description)
	}
}

func writePatientInput(b *strings.Builder, s *workflow.Session) {
	b.WriteString("## Patient Information\n\n")
	writePatient(b, s.Patient)
	b.WriteString("\n### Current Symptoms\n\n")
	writeSymptoms(b, s.Patient.CurrentSymptoms)
}

func writeSymptomAnalysis(b *strings.Builder, s *workflow.Session) {
	b.WriteString("## Analyzing Your Symptoms\n\n")
	switch {
	case s.IsProcessing:
		b.WriteString("Analysis in progress...\n")
	case s.AnalyzedSymptoms == nil:
		b.WriteString("Analysis has not been run yet.\n")
	default:
		b.WriteString("**Symptom Analysis Complete**\n\n### Detected Symptoms\n\n")
		for _, name := range s.AnalyzedSymptoms {
			fmt.Fprintf(b, "- %s\n", name)
		}
	}
	b.WriteString("\n### Considering Patient Information\n\n")
	writePatient(b, s.Patient)
}

func writeKnowledgeRetrieval(b *strings.Builder, s *workflow.Session) {
	b.WriteString("## Medical Knowledge Retrieval\n\n")
	switch {
	case s.IsProcessing:
		b.WriteString("Searching medical knowledge bases...\n")
	case s.Diagnosis == nil:
		b.WriteString("Retrieval has not been run yet.\n")
	default:
		b.WriteString("**Knowledge Retrieval Complete**\n\n")
		writeConditions(b, s.Diagnosis.PossibleConditions)
	}
}

func writeConditions(b *strings.Builder, conditions []medical.Condition) {
	if len(conditions) == 0 {
		b.WriteString("No matching conditions were found.\n")
		return
	}
	for _, c := range conditions {
		fmt.Fprintf(b, "- **%s** (%d%% probability): %s\n", c.Name, percent(c.Probability), c.Description)
	}
}

func (r *Renderer) specialistName(t medical.SpecialistType) string {
	if info, ok := r.dir.Specialist(t); ok {
		return info.Name
	}
	return t.Title()
}

func (r *Renderer) writeSpecialistRouting(b *strings.Builder, s *workflow.Session) {
	b.WriteString("## Specialist Routing\n\n")
	if s.Diagnosis != nil {
		fmt.Fprintf(b, "Recommended: **%s**\n\n", r.specialistName(s.Diagnosis.RecommendedSpecialist))
	}
	b.WriteString("### Available Specialists\n\n")
	for _, info := range r.dir.Specialists() {
		marker := " "
		if info.Type == s.SelectedSpecialist {
			marker = "x"
		}
		fmt.Fprintf(b, "- [%s] %s **%s** (`%s`): %s\n", marker, info.Icon, info.Name, info.Type, info.Description)
	}

	b.WriteString("\n### Specialist Consultation\n\n")
	switch {
	case s.SelectedSpecialist == "":
		b.WriteString("Please select a specialist to consult.\n")
	case s.IsProcessing:
		fmt.Fprintf(b, "Consulting %s...\n", r.specialistName(s.SelectedSpecialist))
	case s.SpecialistOpinion != "":
		fmt.Fprintf(b, "**Selected Specialist:** %s\n\n> %s\n", r.specialistName(s.SelectedSpecialist), s.SpecialistOpinion)
	default:
		fmt.Fprintf(b, "**Selected Specialist:** %s\n", r.specialistName(s.SelectedSpecialist))
	}
}

func (r *Renderer) writeFinalDiagnosis(b *strings.Builder, s *workflow.Session) {
	b.WriteString("## Diagnosis Summary\n\n")
	d := s.Diagnosis
	if d == nil {
		b.WriteString("No diagnosis results available. Please go back and try again.\n")
		return
	}

	fmt.Fprintf(b, "**%s Urgency**\n\n### Possible Conditions\n\n", capitalize(string(d.UrgencyLevel)))
	writeConditions(b, d.PossibleConditions)
	fmt.Fprintf(b, "\n**Confidence Score:** %d%%\n\n", percent(d.Confidence))
	fmt.Fprintf(b, "**Recommended Specialist:** %s\n", r.specialistName(d.RecommendedSpecialist))

	if len(d.AdditionalTests) > 0 {
		b.WriteString("\n### Recommended Tests\n\n")
		for _, t := range d.AdditionalTests {
			fmt.Fprintf(b, "- %s\n", t)
		}
	}
	if s.SpecialistOpinion != "" {
		fmt.Fprintf(b, "\n### Specialist Assessment\n\n> %s\n", s.SpecialistOpinion)
	}
	b.WriteString("\n### Important Disclaimer\n\n")
	b.WriteString(Disclaimer + "\n")
}
