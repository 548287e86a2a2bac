// Package userdb is the thin, out-of-core user-account collaborator spec.md
// §6 allots a connection URI and database name to. It exists only so each
// registered player has an account record in a real backing store; the
// register-player request carries no user_id, so the api package derives
// one as "<session_id>:<player_id>". Account management itself is
// explicitly out of the cryptographic core's scope.
package userdb

import (
	"context"
	"fmt"
)

// User is one registered account, grounded on original_source's
// game_user/models/game_user.rs GameUser struct.
type User struct {
	UserID     string `bson:"user_id" json:"user_id"`
	GameUserID string `bson:"game_user_id" json:"game_user_id"`
	PublicKey  string `bson:"public_key" json:"public_key"`
	PrivateKey string `bson:"private_key" json:"private_key"`
}

// ErrNotFound is returned by Get when no user with the given id exists.
var ErrNotFound = fmt.Errorf("userdb: user not found")

// Repository is the account-storage interface, grounded on
// original_source's GameUserMemTrait (get_by_id, create, delete).
type Repository interface {
	Create(ctx context.Context, u User) error
	Get(ctx context.Context, userID string) (User, error)
	Delete(ctx context.Context, userID string) error
}
