package medical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityBand(t *testing.T) {
	tests := map[int]string{1: "mild", 3: "mild", 4: "moderate", 6: "moderate", 7: "severe", 10: "severe"}
	for sev, want := range tests {
		assert.Equal(t, want, SeverityBand(sev), "severity %d", sev)
	}
}

func TestParseHistory(t *testing.T) {
	assert.Equal(t, []string{"asthma", "diabetes type 2"}, ParseHistory(" asthma ,, diabetes type 2, "))
	assert.Equal(t, []string{}, ParseHistory(""))
}

func TestSpecialistType(t *testing.T) {
	st, err := ParseSpecialistType("pulmonologist")
	require.NoError(t, err)
	assert.Equal(t, Pulmonologist, st)

	_, err = ParseSpecialistType("Pulmonologist")
	assert.Error(t, err)

	assert.Equal(t, "General Practitioner", GeneralPractitioner.Title())
	assert.Equal(t, GeneralPractitioner, SpecialistTypes[0])
}

func TestUrgency(t *testing.T) {
	u, err := ParseUrgency(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, UrgencyHigh, u)
	assert.Equal(t, 2, u.Level())
	assert.Equal(t, -1, Urgency("meh").Level())

	_, err = ParseUrgency("critical")
	assert.Error(t, err)
}

func TestPatientInfoClone(t *testing.T) {
	p := PatientInfo{
		MedicalHistory:  []string{"asthma"},
		CurrentSymptoms: []Symptom{{ID: "1", Name: "Cough"}},
	}
	c := p.Clone()
	c.MedicalHistory[0] = "none"
	c.CurrentSymptoms[0].Name = "Fever"

	assert.Equal(t, "asthma", p.MedicalHistory[0])
	assert.Equal(t, "Cough", p.CurrentSymptoms[0].Name)
	assert.Nil(t, PatientInfo{}.Clone().CurrentSymptoms)
}

func TestGenderValid(t *testing.T) {
	assert.True(t, GenderFemale.Valid())
	assert.True(t, GenderUnset.Valid())
	assert.False(t, Gender("unknown").Valid())
}
