// Package llm defines the types shared with the model-invocation
// collaborator: usage accounting, thread configuration, and the Thread
// interface a host must satisfy. The model call itself lives outside
// this module.
package llm

// Config holds the settings a thread is created with. A child agent
// config always carries IsSubagent=true, which is how the no-nesting
// rule is enforced at spawn time.
type Config struct {
	Provider   string
	Model      string
	MaxTurns   int
	IsSubagent bool
}
