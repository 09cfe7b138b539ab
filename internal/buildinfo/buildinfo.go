package buildinfo

// Version is the client build version compared against the static
// randomizer's client_version. Overridden at link time with
// -ldflags "-X soulslink.ai/internal/buildinfo.Version=..."
var Version = "3.0.0"

// ProtocolVersion is the coordination protocol version announced in Connect.
var ProtocolVersion = [3]int{0, 6, 2}
