package httppresentation

import (
	"context"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// The upstream auth layer validates the session and forwards the caller in these headers.
const (
	headerBuyerID   = "X-Buyer-ID"
	headerBuyerRole = "X-Buyer-Role"
	roleAdmin       = "ADMIN"
)

type access int

const (
	accessPublic access = iota
	accessBuyer
	accessAdmin
)

type identity struct {
	BuyerID string
	Role    string
}

func (i identity) Admin() bool { return strings.EqualFold(i.Role, roleAdmin) }

func identityFromRequest(r *http.Request) identity {
	return identity{
		BuyerID: strings.TrimSpace(r.Header.Get(headerBuyerID)),
		Role:    strings.TrimSpace(r.Header.Get(headerBuyerRole)),
	}
}

type identityKey struct{}

func contextWithIdentity(ctx context.Context, id identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFromContext(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

// withIdentity rejects callers below the route's access level: 401 without a buyer, 403 for non-admins.
func withIdentity(level access, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFromRequest(r)
		switch {
		case level >= accessBuyer && id.BuyerID == "":
			writeErrorTag(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+headerBuyerID+" header")
			return
		case level == accessAdmin && !id.Admin():
			writeErrorTag(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		ctx := contextWithIdentity(r.Context(), id)
		if id.Admin() {
			ctx = logctx.WithFields(ctx, observability.F("buyer_role", roleAdmin))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
