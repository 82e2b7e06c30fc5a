package workflow

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"medflow/internal/medical"
)

// Stage is one step of the wizard. Stages advance strictly in order.
type Stage string

const (
	StagePatientInput       Stage = "patient-input"
	StageSymptomAnalysis    Stage = "symptom-analysis"
	StageKnowledgeRetrieval Stage = "knowledge-retrieval"
	StageSpecialistRouting  Stage = "specialist-routing"
	StageFinalDiagnosis     Stage = "final-diagnosis"
)

var Stages = []Stage{
	StagePatientInput,
	StageSymptomAnalysis,
	StageKnowledgeRetrieval,
	StageSpecialistRouting,
	StageFinalDiagnosis,
}

var stageLabels = map[Stage]string{
	StagePatientInput:       "Patient Input",
	StageSymptomAnalysis:    "Symptom Analysis",
	StageKnowledgeRetrieval: "Knowledge Retrieval",
	StageSpecialistRouting:  "Specialist Routing",
	StageFinalDiagnosis:     "Final Diagnosis",
}

func (s Stage) Index() int {
	return slices.Index(Stages, s)
}

func (s Stage) Label() string {
	return stageLabels[s]
}

// Next returns the following stage; false at the last stage.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(Stages)-1 {
		return s, false
	}
	return Stages[i+1], true
}

// Session is the state of one wizard run.
type Session struct {
	ID    uuid.UUID `json:"id"`
	Stage Stage     `json:"currentStage"`

	Patient          medical.PatientInfo      `json:"patientInfo"`
	AnalyzedSymptoms []string                 `json:"analyzedSymptoms,omitempty"`
	Diagnosis        *medical.DiagnosisResult `json:"diagnosisResult"`

	SelectedSpecialist medical.SpecialistType `json:"selectedSpecialist,omitempty"`
	SpecialistOpinion  string                 `json:"specialistOpinion,omitempty"`

	IsProcessing bool   `json:"isProcessing"`
	Error        string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newPatientInfo() medical.PatientInfo {
	return medical.PatientInfo{
		MedicalHistory:  []string{},
		CurrentSymptoms: []medical.Symptom{},
	}
}

func (s *Session) Clone() *Session {
	c := *s
	c.Patient = s.Patient.Clone()
	c.AnalyzedSymptoms = slices.Clone(s.AnalyzedSymptoms)
	if s.Diagnosis != nil {
		d := s.Diagnosis.Clone()
		c.Diagnosis = &d
	}
	return &c
}

// PatientPatch is a partial update of the intake form. Nil fields are left alone.
type PatientPatch struct {
	Age            *int            `json:"age,omitempty"`
	Gender         *medical.Gender `json:"gender,omitempty"`
	MedicalHistory []string        `json:"medicalHistory,omitempty"`
	// MedicalHistoryText is the comma-separated form of MedicalHistory.
	MedicalHistoryText *string `json:"medicalHistoryText,omitempty"`
}

type SymptomInput struct {
	Name        string `json:"name"`
	Severity    int    `json:"severity"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// StreamEvent reports pipeline progress to a waiting client.
type StreamEvent struct {
	Type     string `json:"type"`
	Stage    Stage  `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Data     any    `json:"data,omitempty"`
}
