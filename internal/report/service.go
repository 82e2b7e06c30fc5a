package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"

	"medflow/internal/logging"
	"medflow/internal/medical"
	"medflow/internal/screen"
	"medflow/internal/workflow"
)

// DefaultFontPaths are tried in order after any configured font.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

var ErrNoFont = errors.New("no usable TTF font found")

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

// Specialists resolves display names for specialist types.
type Specialists interface {
	Specialist(t medical.SpecialistType) (medical.SpecialistInfo, bool)
}

type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
	dir          Specialists
	fontPaths    []string
	now          func() time.Time
	logger       zerolog.Logger
}

type Option func(*Service)

// WithFontPath tries path before the default font locations.
func WithFontPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.fontPaths = append([]string{path}, s.fontPaths...)
		}
	}
}

// WithDirectory names specialists by their directory entry instead of
// their type title.
func WithDirectory(dir Specialists) Option {
	return func(s *Service) { s.dir = dir }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds the report generator. tg may be nil when only PDF
// rendering is needed.
func NewService(tg TelegramClient, doctorChatID int64, opts ...Option) *Service {
	s := &Service{
		tgClient:     tg,
		doctorChatID: doctorChatID,
		fontPaths:    append([]string(nil), DefaultFontPaths...),
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) specialistName(t medical.SpecialistType) string {
	if s.dir != nil {
		if info, ok := s.dir.Specialist(t); ok {
			return info.Name
		}
	}
	return t.Title()
}

const (
	fontName   = "Report"
	textWidth  = 500
	pageBottom = 780
)

type writer struct {
	pdf *gopdf.GoPdf
}

func (w *writer) font(size float64) error {
	return w.pdf.SetFont(fontName, "", size)
}

func (w *writer) ensureSpace() {
	if w.pdf.GetY() > pageBottom {
		w.pdf.AddPage()
	}
}

func (w *writer) line(text string, lineHeight float64) error {
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		// SplitText fails on empty strings.
		lines = []string{text}
	}
	for _, l := range lines {
		w.ensureSpace()
		if err := w.pdf.Cell(nil, l); err != nil {
			return err
		}
		w.pdf.Br(lineHeight)
	}
	return nil
}

func (w *writer) heading(text string) error {
	w.pdf.Br(10)
	if err := w.font(14); err != nil {
		return err
	}
	if err := w.line(text, 18); err != nil {
		return err
	}
	return w.font(11)
}

// RenderPDF lays out the final diagnosis of s on A4 pages.
func (s *Service) RenderPDF(sess workflow.Session) ([]byte, error) {
	if sess.Diagnosis == nil {
		return nil, errors.New("session has no diagnosis")
	}
	d := sess.Diagnosis

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(48, 48, 48, 48)
	pdf.AddPage()

	var fontErr error
	loaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont(fontName, path); err != nil {
			fontErr = err
			continue
		}
		s.logger.Debug().Str("path", path).Msg("report font loaded")
		loaded = true
		break
	}
	if !loaded {
		return nil, fmt.Errorf("%w: set MEDFLOW_FONT_PATH, last error: %v", ErrNoFont, fontErr)
	}

	w := &writer{pdf: pdf}
	if err := w.font(20); err != nil {
		return nil, err
	}
	if err := w.line("MedFlow Diagnosis Report", 30); err != nil {
		return nil, err
	}
	if err := w.font(11); err != nil {
		return nil, err
	}

	p := sess.Patient
	header := []string{
		fmt.Sprintf("Date: %s", s.now().Format("02.01.2006 15:04")),
		fmt.Sprintf("Session: %s", sess.ID),
		fmt.Sprintf("Age: %d    Gender: %s", p.Age, p.Gender),
	}
	if len(p.MedicalHistory) > 0 {
		header = append(header, "Medical history: "+strings.Join(p.MedicalHistory, ", "))
	}
	for _, l := range header {
		if err := w.line(l, 15); err != nil {
			return nil, err
		}
	}

	if err := w.heading("Reported symptoms"); err != nil {
		return nil, err
	}
	for _, sym := range p.CurrentSymptoms {
		l := fmt.Sprintf("- %s: severity %d/10 (%s), %s", sym.Name, sym.Severity, medical.SeverityBand(sym.Severity), sym.Duration)
		if sym.Description != "" {
			l += ". " + sym.Description
		}
		if err := w.line(l, 14); err != nil {
			return nil, err
		}
	}

	if err := w.heading("Possible conditions"); err != nil {
		return nil, err
	}
	if len(d.PossibleConditions) == 0 {
		if err := w.line("- No matching conditions.", 14); err != nil {
			return nil, err
		}
	}
	for _, c := range d.PossibleConditions {
		l := fmt.Sprintf("- %s (%d%%): %s", c.Name, int(math.Round(c.Probability*100)), c.Description)
		if err := w.line(l, 14); err != nil {
			return nil, err
		}
	}

	if err := w.heading("Assessment"); err != nil {
		return nil, err
	}
	summary := []string{
		fmt.Sprintf("Urgency: %s", d.UrgencyLevel),
		fmt.Sprintf("Confidence: %d%%", int(math.Round(d.Confidence*100))),
		fmt.Sprintf("Recommended specialist: %s", s.specialistName(d.RecommendedSpecialist)),
	}
	if len(d.AdditionalTests) > 0 {
		summary = append(summary, "Recommended tests: "+strings.Join(d.AdditionalTests, ", "))
	}
	for _, l := range summary {
		if err := w.line(l, 15); err != nil {
			return nil, err
		}
	}

	if sess.SpecialistOpinion != "" {
		if err := w.heading("Specialist opinion (" + s.specialistName(sess.SelectedSpecialist) + ")"); err != nil {
			return nil, err
		}
		if err := w.line(sess.SpecialistOpinion, 14); err != nil {
			return nil, err
		}
	}

	pdf.Br(20)
	if err := w.font(9); err != nil {
		return nil, err
	}
	if err := w.line(screen.Disclaimer, 12); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) summaryMessage(sess workflow.Session) string {
	d := sess.Diagnosis
	var b strings.Builder
	fmt.Fprintf(&b, "MedFlow: %s urgency case\n", strings.ToUpper(string(d.UrgencyLevel)))
	fmt.Fprintf(&b, "Patient: %d y.o., %s\n", sess.Patient.Age, sess.Patient.Gender)
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(sess.Patient.SymptomNames(), ", "))
	if top, ok := d.TopCondition(); ok {
		fmt.Fprintf(&b, "Top condition: %s (%d%%)\n", top.Name, int(math.Round(top.Probability*100)))
	}
	fmt.Fprintf(&b, "Route to: %s", s.specialistName(d.RecommendedSpecialist))
	return b.String()
}

// SendDoctorReport posts a short summary and the PDF to the doctor chat.
func (s *Service) SendDoctorReport(ctx context.Context, sess workflow.Session) error {
	if s.tgClient == nil {
		return errors.New("telegram client is not configured")
	}
	s.logger.Info().Str("session_id", sess.ID.String()).Msg("generating doctor report")

	data, err := s.RenderPDF(sess)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := s.tgClient.SendMessage(ctx, s.doctorChatID, s.summaryMessage(sess)); err != nil {
		return err
	}

	fileName := fmt.Sprintf("report_%s.pdf", sess.ID.String())
	if err := s.tgClient.SendDocument(ctx, s.doctorChatID, data, fileName); err != nil {
		return err
	}
	s.logger.Info().Int64("chat_id", s.doctorChatID).Str("file", fileName).Msg("doctor report delivered")
	return nil
}
