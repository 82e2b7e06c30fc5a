package knowledge

import (
	"sort"

	"medflow/internal/medical"
)

const (
	maxConditions      = 5
	testConditionCount = 3
)

// Query matches symptom names against the tables and aggregates a diagnosis.
// It is a pure function of its input: same names, same result.
func (b *Base) Query(symptomNames []string) medical.DiagnosisResult {
	var conditions []medical.Condition
	index := make(map[string]int)
	votes := make(map[medical.SpecialistType]int)
	level := 0

	for _, name := range symptomNames {
		entries, ok := b.symptoms[normalize(name)]
		if !ok {
			continue
		}
		for _, e := range entries {
			if i, seen := index[e.Condition]; !seen {
				index[e.Condition] = len(conditions)
				conditions = append(conditions, medical.Condition{
					Name:        e.Condition,
					Probability: e.Probability,
					Description: b.description(e.Condition),
				})
			} else if e.Probability > conditions[i].Probability {
				conditions[i].Probability = e.Probability
			}

			votes[e.Specialist]++
			level = max(level, entryUrgency(e))
		}
	}

	sort.SliceStable(conditions, func(i, j int) bool {
		return conditions[i].Probability > conditions[j].Probability
	})

	recommended := medical.GeneralPractitioner
	maxVotes := 0
	for _, t := range medical.SpecialistTypes {
		if votes[t] > maxVotes {
			maxVotes = votes[t]
			recommended = t
		}
	}

	var confidence float64
	if len(conditions) > 0 {
		var sum float64
		for _, c := range conditions {
			sum += c.Probability
		}
		confidence = sum / float64(len(conditions))
	}

	top := conditions[:min(len(conditions), maxConditions)]
	names := make([]string, 0, testConditionCount)
	for _, c := range conditions[:min(len(conditions), testConditionCount)] {
		names = append(names, c.Name)
	}

	return medical.DiagnosisResult{
		PossibleConditions:    append([]medical.Condition{}, top...),
		Confidence:            confidence,
		RecommendedSpecialist: recommended,
		AdditionalTests:       b.RecommendedTests(names),
		UrgencyLevel:          medical.Urgencies[level],
	}
}

func entryUrgency(e Entry) int {
	switch {
	case e.Specialist == medical.Emergency:
		return 3
	case e.Probability > 0.5:
		return 2
	case e.Probability > 0.3:
		return 1
	}
	return 0
}

// RecommendedTests returns the union of tests for the given conditions in
// first-seen order.
func (b *Base) RecommendedTests(conditionNames []string) []string {
	tests := []string{}
	seen := make(map[string]bool)
	for _, name := range conditionNames {
		for _, t := range b.tests[name] {
			if !seen[t] {
				seen[t] = true
				tests = append(tests, t)
			}
		}
	}
	return tests
}
