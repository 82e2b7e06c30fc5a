package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"medflow/internal/knowledge"
	"medflow/internal/medical"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose SYMPTOM...",
	Short: "Match symptoms against the knowledge tables and print the result",
	Example: `  medflow diagnose headache fever
  medflow diagnose "chest pain" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		result := a.kb.Query(args)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeDiagnosisJSON(cmd.OutOrStdout(), result)
		}
		render, err := markdownRenderer(cmd)
		if err != nil {
			return err
		}
		out, err := render(diagnosisMarkdown(a.kb, args, result))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func writeDiagnosisJSON(w io.Writer, d medical.DiagnosisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func diagnosisMarkdown(kb *knowledge.Base, symptoms []string, d medical.DiagnosisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Diagnosis for: %s\n\n", strings.Join(symptoms, ", "))
	for _, s := range symptoms {
		if !kb.Known(s) {
			fmt.Fprintf(&b, "_Unknown symptom: %s_\n\n", s)
		}
	}
	fmt.Fprintf(&b, "**Urgency:** %s  \n**Confidence:** %d%%  \n", d.UrgencyLevel, int(math.Round(d.Confidence*100)))
	name := d.RecommendedSpecialist.Title()
	if info, ok := kb.Specialist(d.RecommendedSpecialist); ok {
		name = info.Name
	}
	fmt.Fprintf(&b, "**Recommended specialist:** %s\n\n", name)

	if len(d.PossibleConditions) == 0 {
		b.WriteString("No matching conditions.\n")
	} else {
		b.WriteString("| Condition | Probability |\n|---|---|\n")
		for _, c := range d.PossibleConditions {
			fmt.Fprintf(&b, "| %s | %d%% |\n", c.Name, int(math.Round(c.Probability*100)))
		}
	}
	if len(d.AdditionalTests) > 0 {
		fmt.Fprintf(&b, "\n**Tests:** %s\n", strings.Join(d.AdditionalTests, ", "))
	}
	return b.String()
}
