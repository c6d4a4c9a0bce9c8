package runner

// SystemNode tags log entries describing pipeline-level conditions rather
// than any single node.
const SystemNode = "system"

// Entry is one ordered line of a run's log stream.
type Entry struct {
	NodeID string
	OK     bool
	Text   string
}

// Sink receives log entries in the exact order they are produced.
type Sink interface {
	Append(e Entry)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Entry)

// Append implements Sink.
func (f SinkFunc) Append(e Entry) { f(e) }
