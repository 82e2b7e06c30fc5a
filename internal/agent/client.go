package agent

import (
	"context"
	"fmt"
	"strings"

	"medflow/internal/knowledge"
	"medflow/internal/medical"
)

// Client simulates the model-backed steps of the diagnostic pipeline. Every
// call waits for its configured delay before answering from the static tables.
type Client struct {
	kb     *knowledge.Base
	delays Delays
}

func NewClient(kb *knowledge.Base, delays Delays) *Client {
	return &Client{kb: kb, delays: delays}
}

// AnalyzeSymptoms simulates the LLM extraction step
func (c *Client) AnalyzeSymptoms(ctx context.Context, patient medical.PatientInfo) ([]string, error) {
	// A real implementation would send the intake form to a chat model and
	// get back normalised symptom terms.
	if err := Wait(ctx, c.delays.Analysis); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(patient.CurrentSymptoms))
	for _, s := range patient.CurrentSymptoms {
		names = append(names, strings.ToLower(s.Name))
	}
	return names, nil
}

// QueryKnowledge simulates retrieval against a medical knowledge base
func (c *Client) QueryKnowledge(ctx context.Context, symptomNames []string) (medical.DiagnosisResult, error) {
	if err := Wait(ctx, c.delays.Knowledge); err != nil {
		return medical.DiagnosisResult{}, err
	}
	return c.kb.Query(symptomNames), nil
}

// ConsultSpecialist simulates a specialist agent reviewing the preliminary diagnosis.
func (c *Client) ConsultSpecialist(ctx context.Context, specialist medical.SpecialistType, patient medical.PatientInfo, diagnosis medical.DiagnosisResult) (string, error) {
	info, ok := c.kb.Specialist(specialist)
	if !ok {
		return "", fmt.Errorf("unknown specialist %q", specialist)
	}
	if err := Wait(ctx, c.delays.Consultation); err != nil {
		return "", err
	}
	return SpecialistOpinion(info, patient, diagnosis), nil
}

// SpecialistOpinion builds the canned consultation text.
func SpecialistOpinion(info medical.SpecialistInfo, patient medical.PatientInfo, diagnosis medical.DiagnosisResult) string {
	top, ok := diagnosis.TopCondition()
	if !ok {
		return "Based on the information provided, I don't have enough data to make a confident diagnosis. " +
			fmt.Sprintf("I recommend a comprehensive examination with a %s to properly evaluate your condition.", info.Name)
	}

	symptoms := strings.Join(patient.SymptomNames(), ", ")

	if info.Type == medical.Emergency || diagnosis.UrgencyLevel == medical.UrgencyEmergency {
		return fmt.Sprintf("Based on your symptoms, particularly %s, ", symptoms) +
			fmt.Sprintf("I recommend immediate emergency care. The possible condition of %s requires prompt medical attention. ", top.Name) +
			"Please proceed to the nearest emergency room or call emergency services."
	}

	tests := strings.Join(diagnosis.AdditionalTests, ", ")
	if tests == "" {
		tests = "None at this time"
	}
	followUp := "1-2 weeks"
	if diagnosis.UrgencyLevel == medical.UrgencyHigh {
		followUp = "24-48 hours"
	}

	return fmt.Sprintf("After reviewing your symptoms (%s), ", symptoms) +
		fmt.Sprintf("I believe you may be experiencing %s. %s ", top.Name, top.Description) +
		fmt.Sprintf("I recommend the following tests: %s. ", tests) +
		fmt.Sprintf("Follow-up with a %s is advised within %s.", info.Name, followUp)
}
