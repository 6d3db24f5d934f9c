package ir

// Version constants for the program format and engine.
const (
	// IRVersion is the program schema version.
	IRVersion = "1"

	// EngineVersion is the forge engine version.
	EngineVersion = "0.1.0"
)
