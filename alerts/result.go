package alerts

// Result is the outcome of one dispatch. It is built once by the dispatcher
// and only read afterwards.
type Result struct {
	Success  bool     `json:"success"`
	Messages []string `json:"messages"`
	Details  string   `json:"details"`
}

// Lines returns a copy of the per-channel messages.
func (r Result) Lines() []string {
	out := make([]string, len(r.Messages))
	copy(out, r.Messages)
	return out
}

// Summary is a one-line rendering for status bars and CLI output.
func (r Result) Summary() string {
	if r.Success {
		return "Alert sent. " + r.Details
	}
	return "Alert failed. " + r.Details
}
