package proof

import "sync"

// KeyRing holds private signing keys by verification-method ID.
type KeyRing interface {
	// Insert stores a key unless keyID is already taken, in which case it returns false.
	Insert(keyID, keyType string, private []byte) bool
	Get(keyID string) (keyType string, private []byte, ok bool)
	Delete(keyID string)
}

type keyEntry struct {
	keyType string
	private []byte
}

// MemoryKeyRing is a process-local KeyRing.
type MemoryKeyRing struct {
	mu   sync.RWMutex
	keys map[string]keyEntry
}

func NewMemoryKeyRing() *MemoryKeyRing {
	return &MemoryKeyRing{keys: make(map[string]keyEntry)}
}

func (k *MemoryKeyRing) Insert(keyID, keyType string, private []byte) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, taken := k.keys[keyID]; taken {
		return false
	}
	k.keys[keyID] = keyEntry{keyType: keyType, private: append([]byte(nil), private...)}
	return true
}

func (k *MemoryKeyRing) Get(keyID string) (string, []byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[keyID]
	if !ok {
		return "", nil, false
	}
	return e.keyType, e.private, true
}

func (k *MemoryKeyRing) Delete(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, keyID)
}
