package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const (
	metaSuffix = ":meta"

	segEngine = "engine#"
	segUser   = "user#"
	segDate   = "date#"
	segParams = "params#"
)

// Key identifies one memoized engine computation:
//
//	engine#<type>:user#<id>[:date#YYYY-MM-DD][:params#<8 hex>]
type Key struct {
	Engine     domain.EngineType
	UserID     string
	Date       string
	ParamsHash string
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(segEngine)
	b.WriteString(string(k.Engine))
	b.WriteString(":")
	b.WriteString(segUser)
	b.WriteString(k.UserID)
	if k.Date != "" {
		b.WriteString(":")
		b.WriteString(segDate)
		b.WriteString(k.Date)
	}
	if k.ParamsHash != "" {
		b.WriteString(":")
		b.WriteString(segParams)
		b.WriteString(k.ParamsHash)
	}
	return b.String()
}

// MetaKey names the metadata hash stored alongside the value.
func (k Key) MetaKey() string { return k.String() + metaSuffix }

func IsMetaKey(s string) bool { return strings.HasSuffix(s, metaSuffix) }

// Validate rejects keys that would not round-trip through ParseKey or that
// would act as glob patterns against the shared store.
func (k Key) Validate() error {
	if _, ok := domain.ParseEngineType(string(k.Engine)); !ok {
		return fmt.Errorf("cache key: unknown engine %q", k.Engine)
	}
	if err := ValidateUserID(k.UserID); err != nil {
		return err
	}
	if k.Date != "" {
		if _, err := timeutil.ParseDate(k.Date); err != nil {
			return fmt.Errorf("cache key: %w", err)
		}
	}
	if k.ParamsHash != "" && !isHex8(k.ParamsHash) {
		return fmt.Errorf("cache key: params hash %q is not 8 hex chars", k.ParamsHash)
	}
	return nil
}

func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("cache key: empty user id")
	}
	if strings.ContainsAny(id, ":#*?[]\\ \t\r\n") {
		return fmt.Errorf("cache key: user id %q contains reserved characters", id)
	}
	return nil
}

func ParseKey(s string) (Key, error) {
	if IsMetaKey(s) {
		return Key{}, fmt.Errorf("cache key: %q is a metadata key", s)
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return Key{}, fmt.Errorf("cache key: malformed %q", s)
	}
	var k Key
	if !strings.HasPrefix(parts[0], segEngine) || !strings.HasPrefix(parts[1], segUser) {
		return Key{}, fmt.Errorf("cache key: malformed %q", s)
	}
	k.Engine = domain.EngineType(strings.TrimPrefix(parts[0], segEngine))
	k.UserID = strings.TrimPrefix(parts[1], segUser)
	for _, p := range parts[2:] {
		switch {
		case strings.HasPrefix(p, segDate) && k.Date == "" && k.ParamsHash == "":
			k.Date = strings.TrimPrefix(p, segDate)
		case strings.HasPrefix(p, segParams) && k.ParamsHash == "":
			k.ParamsHash = strings.TrimPrefix(p, segParams)
		default:
			return Key{}, fmt.Errorf("cache key: unexpected segment %q in %q", p, s)
		}
	}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Params are the tunable inputs of one engine call. Two calls with equal
// Params produce the same digest regardless of map order.
type Params map[string]any

func (p Params) Hash() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, p[k])
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

func isHex8(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
