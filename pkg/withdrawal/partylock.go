package withdrawal

import (
	"sync"

	"go.uber.org/zap"
)

// partyLocks не даёт одному пользователю подтверждать два вывода одновременно.
type partyLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
	log   *zap.Logger
}

func newPartyLocks(log *zap.Logger) *partyLocks {
	return &partyLocks{locks: make(map[int64]*sync.Mutex), log: log}
}

// tryLock захватывает блокировку пользователя. false: вывод уже выполняется.
func (l *partyLocks) tryLock(partyID int64) bool {
	l.mu.Lock()
	lock, ok := l.locks[partyID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[partyID] = lock
	}
	l.mu.Unlock()

	if !lock.TryLock() {
		l.log.Info("вывод уже выполняется", zap.Int64("party_id", partyID))
		return false
	}
	return true
}

func (l *partyLocks) unlock(partyID int64) {
	l.mu.Lock()
	lock := l.locks[partyID]
	l.mu.Unlock()
	if lock != nil {
		lock.Unlock()
	}
}
