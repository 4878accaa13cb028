package pipeline

import "strings"

const (
	jsonFenceOpen = "```json"
	fenceClose    = "```"
)

// StripCodeFence removes a leading ```json marker and/or a trailing ```
// marker from model output. Text without either marker is returned as is.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)

	hasOpen := strings.HasPrefix(trimmed, jsonFenceOpen)
	hasClose := strings.HasSuffix(trimmed, fenceClose)
	if !hasOpen && !hasClose {
		return s
	}

	if hasOpen {
		trimmed = strings.TrimLeft(strings.TrimPrefix(trimmed, jsonFenceOpen), " \t\r\n")
	}
	if hasClose && strings.HasSuffix(trimmed, fenceClose) {
		trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, fenceClose), " \t\r\n")
	}
	return trimmed
}
