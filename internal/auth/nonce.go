package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Nonce actions.
const (
	ActionGenerateReply = "review_reply_generate"
	ActionSaveSettings  = "review_reply_settings"
	ActionQuickReply    = "review_reply_quick_reply"
)

// DefaultNonceLifetime is how long a nonce stays valid at most.
const DefaultNonceLifetime = 24 * time.Hour

const nonceLength = 20

// Nonces issues and verifies action-scoped anti-forgery tokens. A nonce is
// tied to a user and an action, and is valid for between half and all of
// the lifetime.
type Nonces struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewNonces creates a nonce issuer. An empty secret is replaced by random
// bytes, so nonces then only survive for the life of the process.
func NewNonces(secret string, lifetime time.Duration) *Nonces {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("auth: read random secret: " + err.Error())
		}
	}
	if lifetime < 2*time.Second {
		lifetime = DefaultNonceLifetime
	}
	return &Nonces{secret: key, lifetime: lifetime, now: time.Now}
}

// tick counts half-lifetimes since the epoch, rounded up.
func (n *Nonces) tick() int64 {
	half := int64(n.lifetime / 2 / time.Second)
	now := n.now().Unix()
	return (now + half - 1) / half
}

func (n *Nonces) sign(tick int64, action, userID string) string {
	mac := hmac.New(sha256.New, n.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10) + "|" + action + "|" + userID))
	return hex.EncodeToString(mac.Sum(nil))[:nonceLength]
}

// Create returns a nonce for action on behalf of userID.
func (n *Nonces) Create(action, userID string) string {
	return n.sign(n.tick(), action, userID)
}

// Verify reports whether nonce was issued for action and userID in the
// current or previous tick.
func (n *Nonces) Verify(nonce, action, userID string) bool {
	if len(nonce) != nonceLength {
		return false
	}
	t := n.tick()
	for _, candidate := range []int64{t, t - 1} {
		if hmac.Equal([]byte(nonce), []byte(n.sign(candidate, action, userID))) {
			return true
		}
	}
	return false
}
