package realtime

// Named realtime streams and events used across the platform.
const (
	// StreamPresence carries user online/offline transitions.
	StreamPresence = "presence"

	EventUserOnline  = "user.online"
	EventUserOffline = "user.offline"

	EventChatMessage  = "chat.message"
	EventChatRead     = "chat.read"
	EventBoardUpdated = "board.updated"
)

// ChatStream names the per-relation chat stream.
func ChatStream(relationID string) string {
	return "chat:" + relationID
}

// BoardStream names the per-board update stream.
func BoardStream(boardID string) string {
	return "board:" + boardID
}
