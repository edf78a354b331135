package port

import (
	"context"
	"time"

	"github.com/edujoy/auth-service/internal/core/domain"
)

// RefreshTokenLedger is the authoritative list of refresh tokens each user is
// currently allowed to redeem. Membership here is the stateful half of
// refresh-token validity; the signature check is the stateless half.
type RefreshTokenLedger interface {
	Append(ctx context.Context, entry domain.RefreshTokenEntry) error
	ListByUser(ctx context.Context, userID string) ([]domain.RefreshTokenEntry, error)
	Contains(ctx context.Context, userID, tokenHash string) (bool, error)
	Remove(ctx context.Context, userID, tokenHash string) error
	RemoveAll(ctx context.Context, userID string) (int, error)
	RemoveByIDs(ctx context.Context, ids []string) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
