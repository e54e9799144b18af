package actions

import "github.com/waabox/opsdeck/internal/domain"

// The functions below render outcomes as the human-readable messages
// printed by the CLI.

// DispatchMessage renders the result of Dispatch.
func DispatchMessage(o domain.Outcome[struct{}]) string {
	return o.Message("Workflow triggered successfully.", "Failed to trigger workflow")
}

// RunLogsMessage returns the logs, or the failure text for runID.
func RunLogsMessage(runID string, o domain.Outcome[string]) string {
	return o.Message(o.OrEmpty(), "Failed to get logs for run "+runID)
}

// JobLogsMessage returns the logs, or the failure text for the job.
func JobLogsMessage(runID, jobID string, o domain.Outcome[string]) string {
	return o.Message(o.OrEmpty(), "Failed to get logs for job "+jobID+" in run "+runID)
}

// DownloadMessage returns the destination path, or the failure text.
func DownloadMessage(artifactID string, o domain.Outcome[string]) string {
	return o.Message(o.OrEmpty(), "Failed to download artifact "+artifactID)
}

// CancelMessage renders the result of CancelRun.
func CancelMessage(runID string, o domain.Outcome[struct{}]) string {
	return o.Message("Workflow run "+runID+" has been canceled.", "Failed to cancel workflow run "+runID)
}

// RerunMessage renders the result of RerunRun.
func RerunMessage(runID string, o domain.Outcome[struct{}]) string {
	return o.Message("Workflow "+runID+" has been rerun.", "Failed to rerun workflow "+runID)
}
