// Package tokens issues single-use score tokens. A token binds an opaque id to
// a computed score so a client can later claim a leaderboard slot without
// being able to choose its own score.
package tokens

import (
	"context"
	"fmt"

	"github.com/yoockh/singalong/internal/utils"
)

// ErrTokenNotFound covers unknown, already redeemed and expired ids.
var ErrTokenNotFound = fmt.Errorf("score token: %w", utils.ErrNotFound)

type Store interface {
	Issue(ctx context.Context, score int) (id string, err error)
	// Redeem removes the token on lookup whatever happens next; a second call
	// with the same id returns ErrTokenNotFound.
	Redeem(ctx context.Context, id string) (score int, err error)
}
