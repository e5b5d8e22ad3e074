package core

import "fmt"

// Identity is the author recorded on every write.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
