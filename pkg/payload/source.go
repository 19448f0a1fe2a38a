package payload

import "fmt"

// Origin identifies which of the three disjoint sources a payload came from.
type Origin int

const (
	OriginEmbeddedBinary Origin = iota // Binary chunk segment supplied by the caller
	OriginExternalBuffer               // Buffer file or data URI
	OriginExternalImage                // Image file or data URI

	originCount
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginEmbeddedBinary:
		return "EmbeddedBinary"
	case OriginExternalBuffer:
		return "ExternalBuffer"
	case OriginExternalImage:
		return "ExternalImage"
	default:
		return fmt.Sprintf("Unknown(%d)", o)
	}
}

func (o Origin) valid() bool {
	return o >= 0 && o < originCount
}

// Mode fixes which buffer table bufferViews resolve against for the whole
// lifetime of a store.
type Mode int

const (
	ModeExternalBuffers Mode = iota // .gltf with buffer files or data URIs
	ModeEmbeddedBinary              // .glb with its BIN chunk
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeExternalBuffers:
		return "ExternalBuffers"
	case ModeEmbeddedBinary:
		return "EmbeddedBinary"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// bufferOrigin returns the table bufferViews read from in this mode.
func (m Mode) bufferOrigin() Origin {
	if m == ModeEmbeddedBinary {
		return OriginEmbeddedBinary
	}
	return OriginExternalBuffer
}
