package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	StageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medflow_stage_transitions_total",
			Help: "Wizard stage transitions by target stage",
		},
		[]string{"stage"},
	)
	Diagnoses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medflow_diagnoses_total",
			Help: "Completed knowledge queries by urgency level",
		},
		[]string{"urgency"},
	)
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medflow_pipeline_step_duration_seconds",
			Help:    "Duration of simulated pipeline steps",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"step", "status"},
	)
	ReportsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medflow_doctor_reports_total",
			Help: "Doctor report deliveries by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(StageTransitions, Diagnoses, PipelineDuration, ReportsSent)
}

func ObserveStep(step string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	PipelineDuration.WithLabelValues(step, status).Observe(time.Since(start).Seconds())
}

func ObserveReport(err error) {
	if err != nil {
		ReportsSent.WithLabelValues("error").Inc()
		return
	}
	ReportsSent.WithLabelValues("sent").Inc()
}
