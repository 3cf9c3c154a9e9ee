package vaccination

// MetricsRecorder records workflow outcomes.
type MetricsRecorder interface {
	CampaignCreated()
	StudentsEnrolled(count int)
	ConsentDecided(consent string)
	VaccinationRecorded(status string)
	// Rejected counts a failed workflow operation by the kind of its error.
	Rejected(operation string, err error)
}

type noopMetrics struct{}

func (noopMetrics) CampaignCreated() {}
func (noopMetrics) StudentsEnrolled(int) {}
func (noopMetrics) ConsentDecided(string) {}
func (noopMetrics) VaccinationRecorded(string) {}
func (noopMetrics) Rejected(string, error) {}

// NoopMetrics discards everything.
var NoopMetrics MetricsRecorder = noopMetrics{}
