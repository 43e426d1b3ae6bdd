// Package protocol implements the binary packet format of the voice
// gateway feed. It handles header parsing, control payload extraction
// (speaker join/leave events) and audio payload processing.
package protocol
