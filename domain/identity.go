package domain

// Identity is how a participant is known for the lifetime of a session.
// Address is the stable unique id (a wallet address for the poker clients);
// SessionPubKey is an ephemeral per-session key used by the authentication
// collaborator to verify message signatures. The relay itself never inspects
// signatures.
type Identity struct {
	Address       string `json:"address"`
	SessionPubKey string `json:"sessionPubKey,omitempty"`
}

// Role identifies who a relayed message claims to come from.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
	// RoleChat is orthogonal to seat ownership: either participant may send chat.
	RoleChat Role = "chat"
)
