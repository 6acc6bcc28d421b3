package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeCreateGame  MessageType = "create_game"
	MessageTypeJoinGame    MessageType = "join_game"
	MessageTypeLeaveGame   MessageType = "leave_game"
	MessageTypeRestartGame MessageType = "restart_game"
	MessageTypeStartGame   MessageType = "start_game"
	MessageTypeHit         MessageType = "hit"
	MessageTypeStand       MessageType = "stand"
	MessageTypeListGames   MessageType = "list_games"

	// Server to client messages
	MessageTypeConnected   MessageType = "connected"
	MessageTypeGameCreated MessageType = "game_created"
	MessageTypeGameUpdated MessageType = "game_updated"
	MessageTypeGameLeft    MessageType = "game_left"
	MessageTypeGameList    MessageType = "game_list"
	MessageTypeError       MessageType = "error"
)

// Error codes carried in ErrorData
const (
	ErrorCodeGameNotFound       = "game_not_found"
	ErrorCodeInvalidMessage     = "invalid_message"
	ErrorCodeUnknownMessageType = "unknown_message_type"
	ErrorCodeInvalidRequest     = "invalid_request"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
