package knowledge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medflow/internal/medical"
)

func conditionNames(d medical.DiagnosisResult) []string {
	names := make([]string, 0, len(d.PossibleConditions))
	for _, c := range d.PossibleConditions {
		names = append(names, c.Name)
	}
	return names
}

func TestQuery_SingleSymptom(t *testing.T) {
	kb := Default()

	got := kb.Query([]string{"headache"})

	want := []medical.Condition{
		{Name: "Tension Headache", Probability: 0.7, Description: kb.description("Tension Headache")},
		{Name: "Migraine", Probability: 0.5, Description: kb.description("Migraine")},
		{Name: "Sinusitis", Probability: 0.3, Description: kb.description("Sinusitis")},
	}
	if diff := cmp.Diff(want, got.PossibleConditions); diff != "" {
		t.Errorf("conditions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, medical.GeneralPractitioner, got.RecommendedSpecialist)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Equal(t, medical.UrgencyHigh, got.UrgencyLevel)
	assert.Equal(t, []string{
		"Physical examination",
		"Neurological examination", "MRI scan",
		"Nasal endoscopy", "Sinus CT scan",
	}, got.AdditionalTests)
}

func TestQuery_EmergencySpecialistRaisesUrgency(t *testing.T) {
	got := Default().Query([]string{"abdominal pain"})

	assert.Equal(t, []string{"Gastritis", "Irritable Bowel Syndrome", "Appendicitis"}, conditionNames(got))
	assert.Equal(t, medical.Gastroenterologist, got.RecommendedSpecialist)
	assert.Equal(t, medical.UrgencyEmergency, got.UrgencyLevel)
	assert.InDelta(t, 1.4/3, got.Confidence, 1e-9)
	assert.Equal(t, []string{"Abdominal ultrasound", "CT scan", "Blood tests"}, got.AdditionalTests)
}

func TestQuery_DuplicateConditionKeepsHighestProbability(t *testing.T) {
	got := Default().Query([]string{"dizziness", "fatigue"})

	// Anemia is first seen at 0.3 and raised to 0.5; ties keep first-seen order.
	assert.Equal(t, []string{"Vertigo", "Anemia", "Low Blood Pressure", "Depression", "Hypothyroidism"}, conditionNames(got))
	assert.Equal(t, 0.5, got.PossibleConditions[1].Probability)
	assert.Equal(t, medical.GeneralPractitioner, got.RecommendedSpecialist)
	assert.InDelta(t, 0.44, got.Confidence, 1e-9)
	assert.Equal(t, medical.UrgencyHigh, got.UrgencyLevel)
	assert.Equal(t, []string{"Vestibular testing", "Head MRI"}, got.AdditionalTests)
}

func TestQuery_TopFiveAndConfidenceOverAllMatches(t *testing.T) {
	got := Default().Query([]string{"headache", "fever"})

	require.Len(t, got.PossibleConditions, 5)
	assert.Equal(t, []string{"Tension Headache", "Viral Infection", "Migraine", "Bacterial Infection", "COVID-19"}, conditionNames(got))
	// Sinusitis is dropped from the list but still counts towards confidence.
	assert.InDelta(t, 3.1/6, got.Confidence, 1e-9)
	assert.Equal(t, []string{"Physical examination", "Neurological examination", "MRI scan"}, got.AdditionalTests)
}

func TestQuery_VoteTieUsesDeclarationOrder(t *testing.T) {
	got := Default().Query([]string{"shortness of breath"})

	// pulmonologist, psychiatrist and cardiologist get one vote each.
	assert.Equal(t, medical.Cardiologist, got.RecommendedSpecialist)
	assert.Equal(t, []string{"Echocardiogram", "BNP blood test"}, got.AdditionalTests)
}

func TestQuery_NormalizesNames(t *testing.T) {
	kb := Default()
	assert.Equal(t, kb.Query([]string{"joint pain"}), kb.Query([]string{"  Joint Pain "}))
	assert.Equal(t, medical.Orthopedist, kb.Query([]string{"JOINT PAIN"}).RecommendedSpecialist)
}

func TestQuery_NoMatch(t *testing.T) {
	for _, names := range [][]string{nil, {}, {"cough", "back pain"}} {
		got := Default().Query(names)

		assert.Empty(t, got.PossibleConditions)
		assert.Zero(t, got.Confidence)
		assert.Equal(t, medical.GeneralPractitioner, got.RecommendedSpecialist)
		assert.Empty(t, got.AdditionalTests)
		assert.Equal(t, medical.UrgencyLow, got.UrgencyLevel)
	}
}

func TestQuery_RepeatedSymptomVotesTwice(t *testing.T) {
	got := Default().Query([]string{"chest pain", "chest pain"})

	assert.Len(t, got.PossibleConditions, 3)
	assert.Equal(t, medical.GeneralPractitioner, got.RecommendedSpecialist)
	assert.InDelta(t, 1.3/3, got.Confidence, 1e-9)
}

func TestRecommendedTests_Dedupes(t *testing.T) {
	kb := Default()
	assert.Equal(t, []string{"PCR test", "Chest X-ray"}, kb.RecommendedTests([]string{"COVID-19", "COVID-19", "Unknown"}))
	assert.Empty(t, kb.RecommendedTests(nil))
}
