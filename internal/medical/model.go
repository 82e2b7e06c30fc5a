package medical

import (
	"fmt"
	"slices"
	"strings"
)

type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderUnset, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Symptom is a single patient-reported complaint.
type Symptom struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Severity    int    `json:"severity"` // 1-10
	Duration    string `json:"duration"` // e.g. "3 days", "2 weeks"
	Description string `json:"description"`
}

const (
	MinSeverity     = 1
	MaxSeverity     = 10
	DefaultSeverity = 5
	MaxAge          = 120
)

// SeverityBand buckets a severity score the way the intake form colours it.
func SeverityBand(severity int) string {
	switch {
	case severity >= 7:
		return "severe"
	case severity >= 4:
		return "moderate"
	default:
		return "mild"
	}
}

type PatientInfo struct {
	Age             int       `json:"age"`
	Gender          Gender    `json:"gender"`
	MedicalHistory  []string  `json:"medicalHistory"`
	CurrentSymptoms []Symptom `json:"currentSymptoms"`
}

// SymptomNames returns the symptom names in entry order.
func (p PatientInfo) SymptomNames() []string {
	names := make([]string, 0, len(p.CurrentSymptoms))
	for _, s := range p.CurrentSymptoms {
		names = append(names, s.Name)
	}
	return names
}

// Clone returns a deep copy so callers can't alias stored slices.
func (p PatientInfo) Clone() PatientInfo {
	c := p
	c.MedicalHistory = slices.Clone(p.MedicalHistory)
	c.CurrentSymptoms = slices.Clone(p.CurrentSymptoms)
	return c
}

// ParseHistory splits comma-separated history text, dropping blank items.
func ParseHistory(text string) []string {
	history := []string{}
	for _, item := range strings.Split(text, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			history = append(history, item)
		}
	}
	return history
}

type SpecialistType string

const (
	GeneralPractitioner SpecialistType = "general_practitioner"
	Cardiologist        SpecialistType = "cardiologist"
	Neurologist         SpecialistType = "neurologist"
	Gastroenterologist  SpecialistType = "gastroenterologist"
	Dermatologist       SpecialistType = "dermatologist"
	Orthopedist         SpecialistType = "orthopedist"
	Psychiatrist        SpecialistType = "psychiatrist"
	Pulmonologist       SpecialistType = "pulmonologist"
	Endocrinologist     SpecialistType = "endocrinologist"
	Emergency           SpecialistType = "emergency"
)

// SpecialistTypes lists every specialist in declaration order. Vote ties are
// broken by this order.
var SpecialistTypes = []SpecialistType{
	GeneralPractitioner,
	Cardiologist,
	Neurologist,
	Gastroenterologist,
	Dermatologist,
	Orthopedist,
	Psychiatrist,
	Pulmonologist,
	Endocrinologist,
	Emergency,
}

func ParseSpecialistType(s string) (SpecialistType, error) {
	for _, t := range SpecialistTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown specialist type %q", s)
}

// Title turns "general_practitioner" into "General Practitioner".
func (t SpecialistType) Title() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

type SpecialistInfo struct {
	Type        SpecialistType `json:"type" yaml:"type"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Icon        string         `json:"icon" yaml:"icon"`
	Conditions  []string       `json:"conditions" yaml:"conditions"`
}

type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// Urgencies is ordered from least to most urgent; the index is the level.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency}

func (u Urgency) Level() int {
	for i, v := range Urgencies {
		if v == u {
			return i
		}
	}
	return -1
}

func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	if u.Level() < 0 {
		return "", fmt.Errorf("unknown urgency %q", s)
	}
	return u, nil
}

type Condition struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Description string  `json:"description"`
}

type DiagnosisResult struct {
	PossibleConditions    []Condition    `json:"possibleConditions"`
	Confidence            float64        `json:"confidence"`
	RecommendedSpecialist SpecialistType `json:"recommendedSpecialist"`
	AdditionalTests       []string       `json:"additionalTests,omitempty"`
	UrgencyLevel          Urgency        `json:"urgencyLevel"`
}

// TopCondition returns the highest ranked condition, if any.
func (d DiagnosisResult) TopCondition() (Condition, bool) {
	if len(d.PossibleConditions) == 0 {
		return Condition{}, false
	}
	return d.PossibleConditions[0], true
}

func (d DiagnosisResult) Clone() DiagnosisResult {
	c := d
	c.PossibleConditions = slices.Clone(d.PossibleConditions)
	c.AdditionalTests = slices.Clone(d.AdditionalTests)
	return c
}
