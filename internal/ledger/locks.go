package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// lockTable grants per-account access for the duration of one transaction.
// Writable accounts are held exclusively, read-only accounts shared. Locks are
// taken in key order so overlapping transactions cannot deadlock.
type lockTable struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[solana.PublicKey]*sync.RWMutex)}
}

func (t *lockTable) get(key solana.PublicKey) *sync.RWMutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		t.locks[key] = l
	}
	return l
}

// acquire blocks until every key is held and returns the release function.
func (t *lockTable) acquire(access map[solana.PublicKey]bool) func() {
	keys := make([]solana.PublicKey, 0, len(access))
	for k := range access {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	held := make([]func(), 0, len(keys))
	for _, k := range keys {
		l := t.get(k)
		if access[k] {
			l.Lock()
			held = append(held, l.Unlock)
		} else {
			l.RLock()
			held = append(held, l.RUnlock)
		}
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
}
