// Package opcode enumerates the Arcus opcode registry and classifies
// which opcodes are supported by the active protocol version, mirroring
// one/arcus/internal/opcodes.h and one/arcus/opcode.h from the original
// implementation this protocol was distilled from.
package opcode

// Code identifies the purpose of a message.
type Code uint8

// Framing-relevant opcodes. Invalid never appears on the wire. Hello and
// Health are reserved for the handshake and heartbeat and are never
// delivered to application callbacks.
const (
	Invalid Code = iota
	Hello
	Health

	// Application opcodes from spec.md §6.2. Applications may register
	// additional opcodes past this point; the registry only needs to
	// know whether a given code is supported by the active version.
	SoftStop
	Allocated
	Metadata
	ReverseMetadata
	LiveState
	HostInformation
	ApplicationInstanceInformation
	ApplicationInstanceStatus
	CustomCommand
)

var names = map[Code]string{
	Invalid:                        "invalid",
	Hello:                          "hello",
	Health:                         "health",
	SoftStop:                       "soft_stop",
	Allocated:                      "allocated",
	Metadata:                       "metadata",
	ReverseMetadata:                "reverse_metadata",
	LiveState:                      "live_state",
	HostInformation:                "host_information",
	ApplicationInstanceInformation: "application_instance_information",
	ApplicationInstanceStatus:      "application_instance_status",
	CustomCommand:                  "custom_command",
}

// String returns the opcode's registry name, or "unknown" for an opcode
// this registry does not know about.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Version identifies an Arcus protocol version.
type Version uint8

// CurrentVersion is the protocol version this engine speaks.
const CurrentVersion Version = 1

var supportedByVersion = map[Version]map[Code]bool{
	CurrentVersion: {
		Hello:                          true,
		Health:                         true,
		SoftStop:                       true,
		Allocated:                      true,
		Metadata:                       true,
		ReverseMetadata:                true,
		LiveState:                      true,
		HostInformation:                true,
		ApplicationInstanceInformation: true,
		ApplicationInstanceStatus:      true,
		CustomCommand:                  true,
	},
}

// IsSupported reports whether code is a recognized, on-the-wire opcode
// under the given protocol version. Invalid is never supported.
func IsSupported(version Version, code Code) bool {
	if code == Invalid {
		return false
	}
	set, ok := supportedByVersion[version]
	if !ok {
		return false
	}
	return set[code]
}

// IsFramingReserved reports whether code is handled entirely by the
// framing layer (hello, health) and must never reach an application
// callback or outgoing-validation path.
func IsFramingReserved(code Code) bool {
	return code == Hello || code == Health
}

// Register adds an application-defined opcode to the current version's
// supported set. Invalid and the framing-reserved opcodes (hello, health)
// cannot be re-registered.
func Register(code Code) {
	if code == Invalid || code == Hello || code == Health {
		return
	}
	supportedByVersion[CurrentVersion][code] = true
}
