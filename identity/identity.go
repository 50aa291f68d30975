/*
Package identity carries the pre-authenticated caller context.

Authentication itself is an external collaborator; every core operation
only consumes "who is calling and in what role". The API layer fills an
Actor from the identity provider's headers and passes it down.
*/
package identity

// Role is the caller's role as asserted by the identity collaborator.
type Role string

const (
	RoleManager Role = "manager"
	RoleFlexi   Role = "flexi"
)

// Actor is the caller of a core operation.
type Actor struct {
	UserID string
	Role   Role

	// WorkerID is set when the caller is (or acts as) a flexi worker.
	WorkerID string
}

func (a Actor) IsManager() bool { return a.Role == RoleManager }

// Owns reports whether the actor is the given worker.
func (a Actor) Owns(workerID string) bool {
	return a.WorkerID != "" && a.WorkerID == workerID
}
