package locker_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vlourenco/pdv-fiscal/pkg/locker"
)

func TestKeyed_ExclusaoPorChave(t *testing.T) {
	k := locker.New()
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("doc-1")
			defer k.Unlock("doc-1")
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestKeyed_ChavesIndependentes(t *testing.T) {
	k := locker.New()
	k.Lock("a")
	// outra chave não bloqueia
	done := make(chan struct{})
	go func() {
		k.Lock("b")
		k.Unlock("b")
		close(done)
	}()
	<-done
	k.Unlock("a")
}

func TestKeyed_UnlockSemLockEntraEmPanico(t *testing.T) {
	k := locker.New()
	assert.Panics(t, func() { k.Unlock("nunca") })
}
