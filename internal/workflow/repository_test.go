package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medflow/internal/medical"
)

func TestMemoryRepository_CopiesSessions(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	sess := &Session{ID: uuid.New(), Stage: StagePatientInput, Patient: newPatientInfo()}
	require.NoError(t, repo.Save(ctx, sess))

	sess.Patient.CurrentSymptoms = append(sess.Patient.CurrentSymptoms, medical.Symptom{Name: "Cough"})
	got, err := repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Patient.CurrentSymptoms)

	got.Patient.MedicalHistory = append(got.Patient.MedicalHistory, "asthma")
	again, err := repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Patient.MedicalHistory)
}

func TestMemoryRepository_Timestamps(t *testing.T) {
	repo := NewMemoryRepository().(*memoryRepo)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	sess := &Session{ID: uuid.New()}
	require.NoError(t, repo.Save(ctx, sess))
	assert.Equal(t, now, sess.CreatedAt)

	now = now.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, sess))
	got, err := repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Minute), got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestMemoryRepository_SaveCancelled(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := &Session{ID: uuid.New()}
	assert.ErrorIs(t, repo.Save(ctx, sess), context.Canceled)
	_, err := repo.GetByID(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	sess := &Session{ID: uuid.New()}
	require.NoError(t, repo.Save(ctx, sess))

	require.NoError(t, repo.Delete(ctx, sess.ID))
	assert.ErrorIs(t, repo.Delete(ctx, sess.ID), ErrSessionNotFound)
}

func TestStageNext(t *testing.T) {
	next, ok := StagePatientInput.Next()
	assert.True(t, ok)
	assert.Equal(t, StageSymptomAnalysis, next)

	next, ok = StageFinalDiagnosis.Next()
	assert.False(t, ok)
	assert.Equal(t, StageFinalDiagnosis, next)

	assert.Equal(t, "Knowledge Retrieval", StageKnowledgeRetrieval.Label())
	assert.Equal(t, -1, Stage("bogus").Index())
}
