package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medflow/internal/knowledge"
	"medflow/internal/medical"
)

func patientWith(names ...string) medical.PatientInfo {
	p := medical.PatientInfo{Age: 40, Gender: medical.GenderFemale}
	for i, n := range names {
		p.CurrentSymptoms = append(p.CurrentSymptoms, medical.Symptom{ID: string(rune('a' + i)), Name: n, Severity: 5, Duration: "2 days"})
	}
	return p
}

func newTestClient() *Client {
	return NewClient(knowledge.Default(), Delays{})
}

func TestAnalyzeSymptoms_LowerCases(t *testing.T) {
	names, err := newTestClient().AnalyzeSymptoms(context.Background(), patientWith("Headache", "Chest Pain"))
	require.NoError(t, err)
	assert.Equal(t, []string{"headache", "chest pain"}, names)
}

func TestQueryKnowledge(t *testing.T) {
	d, err := newTestClient().QueryKnowledge(context.Background(), []string{"rash"})
	require.NoError(t, err)
	assert.Equal(t, medical.Dermatologist, d.RecommendedSpecialist)
	assert.Equal(t, "Contact Dermatitis", d.PossibleConditions[0].Name)
}

func TestConsultSpecialist_Routine(t *testing.T) {
	c := newTestClient()
	patient := patientWith("Headache")
	d, err := c.QueryKnowledge(context.Background(), []string{"headache"})
	require.NoError(t, err)

	text, err := c.ConsultSpecialist(context.Background(), medical.Neurologist, patient, d)
	require.NoError(t, err)
	assert.Contains(t, text, "After reviewing your symptoms (Headache)")
	assert.Contains(t, text, "may be experiencing Tension Headache.")
	assert.Contains(t, text, "Physical examination, Neurological examination, MRI scan")
	assert.Contains(t, text, "Follow-up with a Neurologist is advised within 24-48 hours.")
}

func TestConsultSpecialist_MediumUrgencyFollowUp(t *testing.T) {
	c := newTestClient()
	d := medical.DiagnosisResult{
		PossibleConditions: []medical.Condition{{Name: "Gout", Probability: 0.3, Description: "Joint attacks."}},
		UrgencyLevel:       medical.UrgencyMedium,
	}

	text, err := c.ConsultSpecialist(context.Background(), medical.Orthopedist, patientWith("Joint pain"), d)
	require.NoError(t, err)
	assert.Contains(t, text, "I recommend the following tests: None at this time.")
	assert.Contains(t, text, "within 1-2 weeks.")
}

func TestConsultSpecialist_Emergency(t *testing.T) {
	c := newTestClient()
	patient := patientWith("Abdominal pain", "Fever")
	d, err := c.QueryKnowledge(context.Background(), []string{"abdominal pain", "fever"})
	require.NoError(t, err)
	require.Equal(t, medical.UrgencyEmergency, d.UrgencyLevel)

	text, err := c.ConsultSpecialist(context.Background(), medical.GeneralPractitioner, patient, d)
	require.NoError(t, err)
	assert.Contains(t, text, "particularly Abdominal pain, Fever,")
	assert.Contains(t, text, "immediate emergency care")
}

func TestConsultSpecialist_EmergencySpecialistOverridesUrgency(t *testing.T) {
	d := medical.DiagnosisResult{
		PossibleConditions: []medical.Condition{{Name: "Eczema", Probability: 0.5}},
		UrgencyLevel:       medical.UrgencyLow,
	}
	text, err := newTestClient().ConsultSpecialist(context.Background(), medical.Emergency, patientWith("Rash"), d)
	require.NoError(t, err)
	assert.Contains(t, text, "The possible condition of Eczema requires prompt medical attention.")
}

func TestConsultSpecialist_NoConditions(t *testing.T) {
	text, err := newTestClient().ConsultSpecialist(context.Background(), medical.Dermatologist, patientWith("Cough"), medical.DiagnosisResult{})
	require.NoError(t, err)
	assert.Contains(t, text, "don't have enough data")
	assert.Contains(t, text, "comprehensive examination with a Dermatologist")
}

func TestConsultSpecialist_UnknownSpecialist(t *testing.T) {
	_, err := newTestClient().ConsultSpecialist(context.Background(), "dentist", patientWith("x"), medical.DiagnosisResult{})
	assert.Error(t, err)
}

func TestWait_Cancelled(t *testing.T) {
	c := NewClient(knowledge.Default(), Delays{Analysis: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AnalyzeSymptoms(ctx, patientWith("Headache"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_Elapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, Wait(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestDelays_Scale(t *testing.T) {
	d := DefaultDelays().Scale(0.5)
	assert.Equal(t, 750*time.Millisecond, d.Analysis)
	assert.Equal(t, time.Second, d.Knowledge)
	assert.Equal(t, Delays{}, DefaultDelays().Scale(0))
}
