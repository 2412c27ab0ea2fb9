package cart

import "github.com/google/uuid"

// Owner identifies whose cart is being touched: a registered user or an
// anonymous session, exactly one of the two.
type Owner struct {
	UserID    uuid.UUID
	SessionID string
}

func UserOwner(id uuid.UUID) Owner { return Owner{UserID: id} }

func SessionOwner(token string) Owner { return Owner{SessionID: token} }

func (o Owner) IsUser() bool { return o.UserID != uuid.Nil }

func (o Owner) Valid() bool {
	return (o.UserID != uuid.Nil) != (o.SessionID != "")
}
