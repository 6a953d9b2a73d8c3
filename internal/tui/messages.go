package tui

// RowUpdateMsg sets the status and detail of one row.
type RowUpdateMsg struct {
	Key    string
	Status string
	Detail string
}

// ProviderMsg announces a fresh narration attempt by Provider.
type ProviderMsg struct {
	Provider string
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
