package types

// Version is the canonical ddmscope version.
// The CLI, capture file format and archive records share this version.
const Version = "0.3.0"

// CaptureFormatVersion is the version written in capture file headers.
// It only changes when the capture frame layout changes.
const CaptureFormatVersion = 1
