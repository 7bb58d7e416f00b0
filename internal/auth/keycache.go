package auth

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"llm_proxy/internal/models"
	"llm_proxy/internal/utils"
)

// OwnerInfo is the caller identity bound to a credential.
type OwnerInfo struct {
	ID   string
	Name string
}

// CredentialSource is the read side of the external credential store.
type CredentialSource interface {
	ListAll(ctx context.Context) ([]models.Credential, error)
}

// snapshot is one complete, immutable copy of the credential set, keyed by
// the SHA-256 digest of the token so cleartext secrets never sit in memory.
type snapshot map[string]OwnerInfo

// KeyCache answers credential lookups from an in-memory snapshot that is
// periodically rebuilt from the store. Readers see whichever snapshot is
// installed at the moment they look; a refresh swaps the whole snapshot in
// one atomic pointer store, so a lookup never observes a partial set and
// never waits on a refresh.
type KeyCache struct {
	source   CredentialSource
	interval time.Duration
	current  atomic.Pointer[snapshot]
}

// NewKeyCache creates a cache with an empty snapshot installed. Call Refresh
// once before serving traffic, then Start for the background loop.
func NewKeyCache(source CredentialSource, interval time.Duration) *KeyCache {
	c := &KeyCache{
		source:   source,
		interval: interval,
	}
	empty := make(snapshot)
	c.current.Store(&empty)
	return c
}

// Validate returns the owner bound to token if it is present in the current
// snapshot. A miss is a normal outcome, not an error.
func (c *KeyCache) Validate(token string) (OwnerInfo, bool) {
	snap := c.current.Load()
	owner, ok := (*snap)[utils.HashString(token)]
	return owner, ok
}

// Refresh fetches the complete credential set and atomically replaces the
// snapshot. If the store is unreachable the previous snapshot stays
// installed; stale-but-available beats unavailable.
func (c *KeyCache) Refresh(ctx context.Context) error {
	creds, err := c.source.ListAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("credential refresh failed, keeping previous snapshot")
		return err
	}

	next := make(snapshot, len(creds))
	skipped := 0
	for _, cred := range creds {
		if !cred.Valid() {
			skipped++
			continue
		}
		next[utils.HashString(cred.Token)] = OwnerInfo{
			ID:   cred.OwnerID,
			Name: cred.OwnerName,
		}
	}

	c.current.Store(&next)

	ev := log.Info().Int("credentials", len(next))
	if skipped > 0 {
		ev = ev.Int("skipped", skipped)
	}
	ev.Msg("credential snapshot refreshed")

	return nil
}

// Start runs the background refresh loop until ctx is cancelled. It never
// blocks request handling; the only shared state is the snapshot pointer.
func (c *KeyCache) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = c.Refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Len returns the number of credentials in the current snapshot.
func (c *KeyCache) Len() int {
	return len(*c.current.Load())
}
