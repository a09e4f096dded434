// internal/token/model.go
//
// Access token model and ability set.
//
// Context
// -------
// Tenant-side agents authenticate with an opaque bearer secret.  The
// control plane stores only its BLAKE3 digest (`token_hash`), the owning
// tenant, an optional expiry, a closed set of abilities, and usage
// accounting columns that every successful validation bumps.
//
// Schema reference
//
//	CREATE TABLE access_token (
//	    id            BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    tenant_id     BIGINT UNSIGNED NOT NULL,
//	    name          VARCHAR(255) NOT NULL,
//	    token_hash    CHAR(64)     NOT NULL UNIQUE,
//	    abilities     TEXT         NOT NULL,
//	    expires_at    TIMESTAMP    NULL,
//	    last_used_at  TIMESTAMP    NULL,
//	    use_count     BIGINT UNSIGNED NOT NULL DEFAULT 0,
//	    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
// • Abilities are a tagged bit set, not free-form strings.  Unknown names
//   in the column are dropped at scan time; issuance is expected to only
//   write known names.
// • Tokens are never deleted here.  Revocation is modelled by expiry.
package token

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Ability is one permission bit.
type Ability uint32

const (
	AbilityHeartbeat Ability = 1 << iota
	AbilityStatus
)

// AbilityAll is what the "*" wildcard grants.
const AbilityAll = AbilityHeartbeat | AbilityStatus

var abilityNames = map[string]Ability{
	"heartbeat": AbilityHeartbeat,
	"status":    AbilityStatus,
	"*":         AbilityAll,
}

// Abilities is a set of Ability bits.
type Abilities uint32

// Has reports whether every bit of a is in the set.
func (s Abilities) Has(a Ability) bool { return Ability(s)&a == a }

// String renders the set in canonical order.
func (s Abilities) String() string {
	var out []string
	if s.Has(AbilityHeartbeat) {
		out = append(out, "heartbeat")
	}
	if s.Has(AbilityStatus) {
		out = append(out, "status")
	}
	return strings.Join(out, ",")
}

// ParseAbilities accepts either a JSON array (`["heartbeat"]`) or a comma
// separated list (`heartbeat,status`).
func ParseAbilities(raw string) Abilities {
	raw = strings.TrimSpace(raw)
	var names []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return 0
		}
	} else {
		names = strings.Split(raw, ",")
	}
	var set Abilities
	for _, n := range names {
		if a, ok := abilityNames[strings.ToLower(strings.TrimSpace(n))]; ok {
			set |= Abilities(a)
		}
	}
	return set
}

// Scan implements sql.Scanner.
func (s *Abilities) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = 0
	case string:
		*s = ParseAbilities(v)
	case []byte:
		*s = ParseAbilities(string(v))
	default:
		return fmt.Errorf("token: cannot scan %T into Abilities", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (s Abilities) Value() (driver.Value, error) { return s.String(), nil }

// AccessToken mirrors one row in `access_token`.
type AccessToken struct {
	ID         uint64     `db:"id"`
	TenantID   uint64     `db:"tenant_id"`
	Name       string     `db:"name"`
	Abilities  Abilities  `db:"abilities"`
	ExpiresAt  *time.Time `db:"expires_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
	UseCount   uint64     `db:"use_count"`
}

// Expired reports whether the expiry lies in the past relative to now.
// A nil expiry never expires.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// Can reports whether the token holds ability a.
func (t *AccessToken) Can(a Ability) bool { return t.Abilities.Has(a) }

// Digest returns the lookup key for a presented bearer secret.
func Digest(secret string) string {
	sum := blake3.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
