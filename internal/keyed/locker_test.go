package keyed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	l := NewLocker()
	key := document.NewKey("doc-1", "alice")

	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(key)
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 0, l.Len(), "entries should be released after use")
}

func TestLocker_IndependentKeys(t *testing.T) {
	l := NewLocker()
	unlockGuest := l.Lock(document.NewKey("doc-1", ""))
	defer unlockGuest()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock(document.NewKey("doc-1", "alice"))
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different owner partition should not block")
	}
}

func TestLocker_UnlockIdempotent(t *testing.T) {
	l := NewLocker()
	unlock := l.Lock(document.NewKey("doc", "bob"))
	unlock()
	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestLocker_ReadersShareKey(t *testing.T) {
	l := NewLocker()
	key := document.NewKey("doc-1", "alice")

	unlockFirst := l.RLock(key)
	defer unlockFirst()

	done := make(chan struct{})
	go func() {
		unlock := l.RLock(key)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second reader should not wait for the first")
	}
}

func TestLocker_WriterExcludesReaders(t *testing.T) {
	l := NewLocker()
	key := document.NewKey("doc-1", "alice")

	unlockRead := l.RLock(key)

	written := make(chan struct{})
	go func() {
		unlock := l.Lock(key)
		close(written)
		unlock()
	}()

	select {
	case <-written:
		t.Fatal("writer acquired the key while a reader held it")
	case <-time.After(20 * time.Millisecond):
	}

	unlockRead()
	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("writer should proceed once the reader releases")
	}

	unlockWrite := l.Lock(key)
	read := make(chan struct{})
	go func() {
		unlock := l.RLock(key)
		close(read)
		unlock()
	}()

	select {
	case <-read:
		t.Fatal("reader acquired the key while a writer held it")
	case <-time.After(20 * time.Millisecond):
	}
	unlockWrite()
	<-read

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, time.Millisecond)
}
