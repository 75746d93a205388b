package hub

const (
	TypeState = "state"
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"
)

// StateMessage tells a browser that the session changed and it should
// refetch /api/state.
type StateMessage struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
}

type ClientMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
