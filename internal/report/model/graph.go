package model

// RunState stores per-invocation state for the report graph.
// It is registered as graph local state via compose.WithGenLocalState and is
// only touched inside state handlers or compose.ProcessState.
type RunState struct {
	SessionID string
	Domain    Domain
	Request   *ReportRequest // set by the collector post-handler, read by the assembler
}

// Draft is the output of one successful graph run: the generated text and the
// request it was generated from.
type Draft struct {
	Request ReportRequest
	Text    string
}
