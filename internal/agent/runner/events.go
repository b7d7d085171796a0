package runner

// EventType enumerates what a running turn can emit.
type EventType string

const (
	// EventToolStart fires right before a tool handler runs.
	EventToolStart EventType = "tool-start"
	// EventChunk carries one streamed slice of assistant text.
	EventChunk EventType = "chunk"
	// EventError terminates the stream after an unrecoverable failure.
	EventError EventType = "error"
	// EventDone terminates the stream after a successful turn.
	EventDone EventType = "done"
)

// Event is one item on a turn's event stream. Exactly one of the payload
// fields is meaningful, selected by Type. Every stream ends with either a
// done or an error event; consumers may rely on that to release resources.
type Event struct {
	Type EventType

	// Tool is set on tool-start events.
	Tool string
	// Text is set on chunk events.
	Text string
	// Err is the user-safe message set on error events.
	Err string
	// ToolsUsed and ToolCount are set on done events.
	ToolsUsed []string
	ToolCount int
}

func toolStartEvent(name string) Event {
	return Event{Type: EventToolStart, Tool: name}
}

func chunkEvent(text string) Event {
	return Event{Type: EventChunk, Text: text}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Err: message}
}

func doneEvent(toolsUsed []string) Event {
	return Event{Type: EventDone, ToolsUsed: toolsUsed, ToolCount: len(toolsUsed)}
}
