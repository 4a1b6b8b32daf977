package models

// WorkflowRunRequest is the body posted to the upstream /workflows/run endpoint.
type WorkflowRunRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode ResponseMode      `json:"response_mode"`
	User         string            `json:"user"`
}

// CodeWorkflowNotPublished is returned when the app has no published workflow.
const CodeWorkflowNotPublished = "workflow_not_published"
