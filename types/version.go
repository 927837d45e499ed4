package types

// Version is the canonical project version.
// The CLI, the responder and the wire payload shapes share this version.
const Version = "0.3.0"
