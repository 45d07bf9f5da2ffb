package protocol

// HELLO (client -> server): subscribe to tick events.
type HelloMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ClientName      string   `json:"client_name,omitempty"`
	Projects        []string `json:"projects,omitempty"` // empty = all projects
	Capabilities    struct {
		MaxQueue int `json:"max_queue,omitempty"`
	} `json:"capabilities,omitempty"`
}

// WELCOME (server -> client).
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ServerTimeMs    int64        `json:"server_time_ms"`
	Projects        []ProjectRef `json:"projects"`
}

// ProjectRef summarizes one active project in a WELCOME.
type ProjectRef struct {
	ID          string `json:"id"`
	Phase       int    `json:"phase"`
	PhaseName   string `json:"phase_name"`
	Paused      bool   `json:"paused,omitempty"`
	Quarantined bool   `json:"quarantined,omitempty"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
