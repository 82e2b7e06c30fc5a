package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medflow/internal/agent"
	"medflow/internal/logging"
	"medflow/internal/medical"
	"medflow/internal/metrics"
)

// Pipeline defines the simulated AI steps the wizard drives.
// We define it here to decouple from the specific agent implementation
type Pipeline interface {
	AnalyzeSymptoms(ctx context.Context, patient medical.PatientInfo) ([]string, error)
	QueryKnowledge(ctx context.Context, symptomNames []string) (medical.DiagnosisResult, error)
	ConsultSpecialist(ctx context.Context, specialist medical.SpecialistType, patient medical.PatientInfo, diagnosis medical.DiagnosisResult) (string, error)
}

// ReportService delivers the final diagnosis to a doctor.
type ReportService interface {
	SendDoctorReport(ctx context.Context, s Session) error
}

type Service interface {
	CreateSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	UpdatePatient(ctx context.Context, id uuid.UUID, patch PatientPatch) (*Session, error)
	AddSymptom(ctx context.Context, id uuid.UUID, in SymptomInput) (*Session, error)
	RemoveSymptom(ctx context.Context, id uuid.UUID, symptomID string) (*Session, error)

	Proceed(ctx context.Context, id uuid.UUID) (*Session, error)
	Reset(ctx context.Context, id uuid.UUID) (*Session, error)

	// CheckStep reports whether the pipeline step of stage could start now.
	CheckStep(ctx context.Context, id uuid.UUID, stage Stage) error
	RunSymptomAnalysis(ctx context.Context, id uuid.UUID, events chan<- StreamEvent) (*Session, error)
	RunKnowledgeRetrieval(ctx context.Context, id uuid.UUID, events chan<- StreamEvent) (*Session, error)
	SelectSpecialist(ctx context.Context, id uuid.UUID, specialist medical.SpecialistType) (*Session, error)
	ConsultSpecialist(ctx context.Context, id uuid.UUID) (*Session, error)
}

// Pacing holds the UI-side pauses between progress updates.
type Pacing struct {
	AnalysisWarmup time.Duration
	AnalysisSettle time.Duration
	RetrievalStep  time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		AnalysisWarmup: time.Second,
		AnalysisSettle: 500 * time.Millisecond,
		RetrievalStep:  800 * time.Millisecond,
	}
}

func (p Pacing) Scale(f float64) Pacing {
	return Pacing{
		AnalysisWarmup: agent.ScaleDuration(p.AnalysisWarmup, f),
		AnalysisSettle: agent.ScaleDuration(p.AnalysisSettle, f),
		RetrievalStep:  agent.ScaleDuration(p.RetrievalStep, f),
	}
}

type Option func(*service)

func WithPacing(p Pacing) Option {
	return func(s *service) { s.pacing = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *service) { s.logger = l }
}

// WithReporter sends a doctor report when a session reaches the final stage
// with at least minUrgency.
func WithReporter(r ReportService, minUrgency medical.Urgency) Option {
	return func(s *service) {
		s.reportSvc = r
		s.minUrgency = minUrgency
	}
}

type service struct {
	repo      Repository
	pipeline  Pipeline
	reportSvc ReportService
	locks     *sessionLocks

	pacing     Pacing
	minUrgency medical.Urgency
	logger     zerolog.Logger
}

func NewService(repo Repository, pipeline Pipeline, opts ...Option) Service {
	s := &service{
		repo:       repo,
		pipeline:   pipeline,
		locks:      newSessionLocks(),
		pacing:     DefaultPacing(),
		minUrgency: medical.UrgencyHigh,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateSession(ctx context.Context) (*Session, error) {
	sess := &Session{
		ID:      uuid.New(),
		Stage:   StagePatientInput,
		Patient: newPatientInfo(),
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	metrics.StageTransitions.WithLabelValues(string(StagePatientInput)).Inc()
	s.logger.Info().Str("session_id", sess.ID.String()).Msg("session created")
	return sess.Clone(), nil
}

func (s *service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

// DeleteSession refuses sessions with a step in flight.
func (s *service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sess.IsProcessing {
		return ErrBusy
	}
	return s.repo.Delete(ctx, id)
}

// update runs fn on the stored session under the session lock and saves the
// result. Sessions with a pipeline step in flight are rejected.
func (s *service) update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsProcessing {
		return nil, ErrBusy
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

func (s *service) UpdatePatient(ctx context.Context, id uuid.UUID, patch PatientPatch) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		if sess.Stage != StagePatientInput {
			return wrongStage("update patient", StagePatientInput, sess.Stage)
		}
		if patch.Age != nil {
			if *patch.Age < 0 || *patch.Age > medical.MaxAge {
				return invalid("Age must be between 0 and %d", medical.MaxAge)
			}
			sess.Patient.Age = *patch.Age
		}
		if patch.Gender != nil {
			if !patch.Gender.Valid() {
				return invalid("Unknown gender %q", *patch.Gender)
			}
			sess.Patient.Gender = *patch.Gender
		}
		if patch.MedicalHistory != nil {
			history := make([]string, 0, len(patch.MedicalHistory))
			for _, h := range patch.MedicalHistory {
				if h = strings.TrimSpace(h); h != "" {
					history = append(history, h)
				}
			}
			sess.Patient.MedicalHistory = history
		}
		if patch.MedicalHistoryText != nil {
			sess.Patient.MedicalHistory = medical.ParseHistory(*patch.MedicalHistoryText)
		}
		return nil
	})
}

func (s *service) AddSymptom(ctx context.Context, id uuid.UUID, in SymptomInput) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		if sess.Stage != StagePatientInput {
			return wrongStage("add symptom", StagePatientInput, sess.Stage)
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return invalid("Please enter a symptom name")
		}
		duration := strings.TrimSpace(in.Duration)
		if duration == "" {
			return invalid("Please specify how long you've had this symptom")
		}
		severity := in.Severity
		if severity == 0 {
			severity = medical.DefaultSeverity
		}
		if severity < medical.MinSeverity || severity > medical.MaxSeverity {
			return invalid("Severity must be between %d and %d", medical.MinSeverity, medical.MaxSeverity)
		}

		sess.Patient.CurrentSymptoms = append(sess.Patient.CurrentSymptoms, medical.Symptom{
			ID:          uuid.NewString(),
			Name:        name,
			Severity:    severity,
			Duration:    duration,
			Description: strings.TrimSpace(in.Description),
		})
		return nil
	})
}

func (s *service) RemoveSymptom(ctx context.Context, id uuid.UUID, symptomID string) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		if sess.Stage != StagePatientInput {
			return wrongStage("remove symptom", StagePatientInput, sess.Stage)
		}
		kept := sess.Patient.CurrentSymptoms[:0]
		for _, sym := range sess.Patient.CurrentSymptoms {
			if sym.ID != symptomID {
				kept = append(kept, sym)
			}
		}
		sess.Patient.CurrentSymptoms = kept
		return nil
	})
}

func (s *service) Proceed(ctx context.Context, id uuid.UUID) (*Session, error) {
	advanced := false
	sess, err := s.update(ctx, id, func(sess *Session) error {
		switch sess.Stage {
		case StagePatientInput:
			if sess.Patient.Age == 0 {
				return invalid("Please enter your age")
			}
			if sess.Patient.Gender == medical.GenderUnset {
				return invalid("Please select your gender")
			}
			if len(sess.Patient.CurrentSymptoms) == 0 {
				return invalid("Please add at least one symptom")
			}
		case StageSymptomAnalysis:
			if sess.AnalyzedSymptoms == nil {
				return invalid("Symptom analysis has not completed yet")
			}
		case StageKnowledgeRetrieval:
			if sess.Diagnosis == nil {
				return invalid("Knowledge retrieval has not completed yet")
			}
		}

		next, ok := sess.Stage.Next()
		if !ok {
			return nil
		}
		sess.Stage = next
		sess.Error = ""
		if next == StageSpecialistRouting {
			sess.SelectedSpecialist = sess.Diagnosis.RecommendedSpecialist
			sess.SpecialistOpinion = ""
		}
		advanced = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !advanced {
		return sess, nil
	}

	metrics.StageTransitions.WithLabelValues(string(sess.Stage)).Inc()
	s.logger.Info().Str("session_id", id.String()).Str("stage", string(sess.Stage)).Msg("stage advanced")
	if sess.Stage == StageFinalDiagnosis {
		s.maybeReport(ctx, *sess)
	}
	return sess, nil
}

func (s *service) Reset(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		sess.Stage = StagePatientInput
		sess.Patient = newPatientInfo()
		sess.AnalyzedSymptoms = nil
		sess.Diagnosis = nil
		sess.SelectedSpecialist = ""
		sess.SpecialistOpinion = ""
		sess.Error = ""
		metrics.StageTransitions.WithLabelValues(string(StagePatientInput)).Inc()
		return nil
	})
}

func (s *service) SelectSpecialist(ctx context.Context, id uuid.UUID, specialist medical.SpecialistType) (*Session, error) {
	if _, err := medical.ParseSpecialistType(string(specialist)); err != nil {
		return nil, invalid("Unknown specialist %q", specialist)
	}
	return s.update(ctx, id, func(sess *Session) error {
		if sess.Stage != StageSpecialistRouting {
			return wrongStage("select specialist", StageSpecialistRouting, sess.Stage)
		}
		sess.SelectedSpecialist = specialist
		sess.SpecialistOpinion = ""
		return nil
	})
}

// stepOps names the pipeline step run at each stage.
var stepOps = map[Stage]string{
	StageSymptomAnalysis:    "symptom analysis",
	StageKnowledgeRetrieval: "knowledge retrieval",
	StageSpecialistRouting:  "specialist consultation",
}

func checkStage(sess *Session, stage Stage) error {
	if sess.IsProcessing {
		return ErrBusy
	}
	if sess.Stage != stage {
		return wrongStage(stepOps[stage], stage, sess.Stage)
	}
	return nil
}

func (s *service) CheckStep(ctx context.Context, id uuid.UUID, stage Stage) error {
	if _, ok := stepOps[stage]; !ok {
		return fmt.Errorf("no pipeline step at stage %q", stage)
	}
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return checkStage(sess, stage)
}

// begin marks the session as processing so no other step can start until
// finish is called.
func (s *service) begin(ctx context.Context, id uuid.UUID, stage Stage, check func(*Session) error) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		if err := checkStage(sess, stage); err != nil {
			return err
		}
		if check != nil {
			if err := check(sess); err != nil {
				return err
			}
		}
		sess.IsProcessing = true
		sess.Error = ""
		return nil
	})
}

// finish clears the processing flag and stores either the step's result or
// its failure message. It runs even when ctx was cancelled.
func (s *service) finish(ctx context.Context, id uuid.UUID, op string, stepErr error, failMsg string, apply func(*Session)) (*Session, error) {
	ctx = context.WithoutCancel(ctx)
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.IsProcessing = false
	if stepErr != nil {
		sess.Error = failMsg
		s.logger.Error().Err(stepErr).Str("session_id", id.String()).Str("step", op).Msg("pipeline step failed")
	} else {
		apply(sess)
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	if stepErr != nil {
		return nil, fmt.Errorf("%s: %w", op, stepErr)
	}
	return sess.Clone(), nil
}

func emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) {
	if events == nil {
		return
	}
	ev.Type = EventProgress
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (s *service) RunSymptomAnalysis(ctx context.Context, id uuid.UUID, events chan<- StreamEvent) (*Session, error) {
	sess, err := s.begin(ctx, id, StageSymptomAnalysis, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var names []string
	err = func() error {
		emit(ctx, events, StreamEvent{Stage: StageSymptomAnalysis, Progress: 20, Step: "Extracting Symptoms", Status: "Processing patient input and categorizing symptoms"})
		if err := agent.Wait(ctx, s.pacing.AnalysisWarmup); err != nil {
			return err
		}
		emit(ctx, events, StreamEvent{Stage: StageSymptomAnalysis, Progress: 40, Step: "Running LLM Analysis", Status: "Applying medical knowledge to understand your condition"})
		var err error
		if names, err = s.pipeline.AnalyzeSymptoms(ctx, sess.Patient); err != nil {
			return err
		}
		if err := agent.Wait(ctx, s.pacing.AnalysisSettle); err != nil {
			return err
		}
		emit(ctx, events, StreamEvent{Stage: StageSymptomAnalysis, Progress: 70, Step: "Preparing Results", Status: "Compiling insights and preparing for knowledge retrieval"})
		if err := agent.Wait(ctx, s.pacing.AnalysisSettle); err != nil {
			return err
		}
		emit(ctx, events, StreamEvent{Stage: StageSymptomAnalysis, Progress: 100, Status: "Symptom Analysis Complete"})
		return nil
	}()
	metrics.ObserveStep("symptom_analysis", start, err)

	return s.finish(ctx, id, "symptom analysis", err, msgAnalysisFailed, func(sess *Session) {
		if names == nil {
			names = []string{}
		}
		sess.AnalyzedSymptoms = names
	})
}

func (s *service) RunKnowledgeRetrieval(ctx context.Context, id uuid.UUID, events chan<- StreamEvent) (*Session, error) {
	sess, err := s.begin(ctx, id, StageKnowledgeRetrieval, nil)
	if err != nil {
		return nil, err
	}

	names := sess.AnalyzedSymptoms
	if names == nil {
		for _, n := range sess.Patient.SymptomNames() {
			names = append(names, strings.ToLower(n))
		}
	}

	steps := []StreamEvent{
		{Progress: 10, Status: "Connecting to medical knowledge bases..."},
		{Progress: 30, Status: "Searching relevant medical literature..."},
		{Progress: 50, Status: "Retrieving clinical guidelines..."},
		{Progress: 70, Status: "Analyzing potential diagnoses..."},
	}

	start := time.Now()
	var diagnosis medical.DiagnosisResult
	err = func() error {
		for i, step := range steps {
			if i > 0 {
				if err := agent.Wait(ctx, s.pacing.RetrievalStep); err != nil {
					return err
				}
			}
			step.Stage = StageKnowledgeRetrieval
			emit(ctx, events, step)
		}
		var err error
		if diagnosis, err = s.pipeline.QueryKnowledge(ctx, names); err != nil {
			return err
		}
		emit(ctx, events, StreamEvent{Stage: StageKnowledgeRetrieval, Progress: 100, Status: "Analysis complete!"})
		return nil
	}()
	metrics.ObserveStep("knowledge_retrieval", start, err)
	if err == nil {
		metrics.Diagnoses.WithLabelValues(string(diagnosis.UrgencyLevel)).Inc()
	}

	return s.finish(ctx, id, "knowledge retrieval", err, msgRetrievalFailed, func(sess *Session) {
		sess.Diagnosis = &diagnosis
	})
}

func (s *service) ConsultSpecialist(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.begin(ctx, id, StageSpecialistRouting, func(sess *Session) error {
		if sess.SelectedSpecialist == "" {
			return invalid("Please select a specialist to consult.")
		}
		if sess.Diagnosis == nil {
			return invalid("No preliminary diagnosis to review")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opinion, err := s.pipeline.ConsultSpecialist(ctx, sess.SelectedSpecialist, sess.Patient, *sess.Diagnosis)
	metrics.ObserveStep("specialist_consultation", start, err)

	return s.finish(ctx, id, "specialist consultation", err, msgConsultationFailed, func(stored *Session) {
		// The selection can't change while processing, so the opinion matches it.
		stored.SpecialistOpinion = opinion
	})
}

func (s *service) maybeReport(ctx context.Context, sess Session) {
	if s.reportSvc == nil || sess.Diagnosis == nil {
		return
	}
	if sess.Diagnosis.UrgencyLevel.Level() < s.minUrgency.Level() {
		return
	}

	// Delivery is slow and must not hold up the patient's response.
	go func(c Session) {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		err := s.reportSvc.SendDoctorReport(bgCtx, c)
		metrics.ObserveReport(err)
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", c.ID.String()).Msg("failed to send doctor report")
			return
		}
		s.logger.Info().Str("session_id", c.ID.String()).Msg("doctor report sent")
	}(sess)
}
