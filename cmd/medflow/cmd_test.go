package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medflow/internal/config"
	"medflow/internal/knowledge"
	"medflow/internal/medical"
)

func testApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(config.Config{LogLevel: "disabled", ReportMinUrgency: "high"})
	require.NoError(t, err)
	return a
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer(newRouter(testApp(t), []string{"http://localhost:5173"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "medflow_stage_transitions_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := httptest.NewServer(newRouter(testApp(t), []string{"http://localhost:5173"}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func newTestWizard(a *app, input string, out io.Writer) *wizard {
	return &wizard{
		svc:    a.svc,
		screen: a.screens.Render,
		render: func(md string) (string, error) { return md, nil },
		in:     bufio.NewScanner(strings.NewReader(input)),
		out:    out,
	}
}

func TestWizard_FullRun(t *testing.T) {
	input := strings.Join([]string{
		"40", "female", "", // patient
		"headache", "6", "2 days", "", // symptom
		"",    // finish symptoms
		"",    // keep recommended specialist
		"",    // continue to final diagnosis
		"n",   // no new consultation
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, newTestWizard(testApp(t), input, &out).run(t.Context()))

	text := out.String()
	assert.Contains(t, text, "[ 20%] Extracting Symptoms: Processing patient input and categorizing symptoms")
	assert.Contains(t, text, "[100%] Analysis complete!")
	assert.Contains(t, text, "Consulting General Practitioner...")
	assert.Contains(t, text, "## Diagnosis Summary")
	assert.Contains(t, text, "**High Urgency**")
}

func TestWizard_ReportsValidationAndQuits(t *testing.T) {
	var out bytes.Buffer
	err := newTestWizard(testApp(t), "40\nmale\n\n\n", &out).run(t.Context())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "! Please add at least one symptom")
}

func TestWizard_QuitImmediately(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newTestWizard(testApp(t), "q\n", &out).run(t.Context()))
}

func TestDiagnosisMarkdown(t *testing.T) {
	kb := knowledge.Default()
	d := kb.Query([]string{"headache", "glowing"})
	md := diagnosisMarkdown(kb, []string{"headache", "glowing"}, d)

	assert.Contains(t, md, "_Unknown symptom: glowing_")
	assert.Contains(t, md, "**Recommended specialist:** General Practitioner")
	assert.Contains(t, md, "| Condition | Probability |")
}

func TestWriteDiagnosisJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDiagnosisJSON(&buf, medical.DiagnosisResult{
		RecommendedSpecialist: medical.GeneralPractitioner,
		UrgencyLevel:          medical.UrgencyLow,
		PossibleConditions:    []medical.Condition{},
	}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "general_practitioner", got["recommendedSpecialist"])
	assert.Equal(t, "low", got["urgencyLevel"])
	assert.NotContains(t, got, "additionalTests")
}

func styledCommand(t *testing.T, style string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("style", "", "")
	cmd.Flags().Int("width", 60, "")
	require.NoError(t, cmd.Flags().Set("style", style))
	return cmd
}

func TestMarkdownRenderer_Style(t *testing.T) {
	render, err := markdownRenderer(styledCommand(t, "notty"))
	require.NoError(t, err)

	out, err := render(diagnosisMarkdown(knowledge.Default(), []string{"cough"}, knowledge.Default().Query([]string{"cough"})))
	require.NoError(t, err)
	assert.Contains(t, out, "Recommended specialist:")

	// Without a style, output to a non-terminal stdout stays raw markdown.
	render, err = markdownRenderer(styledCommand(t, ""))
	require.NoError(t, err)
	out, err = render("**bold**\n")
	require.NoError(t, err)
	assert.Equal(t, "**bold**\n", out)

	_, err = markdownRenderer(styledCommand(t, "no-such-style"))
	assert.ErrorContains(t, err, `style "no-such-style"`)
}
