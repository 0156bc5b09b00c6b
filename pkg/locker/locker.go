// Package locker fornece exclusão mútua por chave, usada para serializar
// submit/cancel/export por documento, processamento por lote e ativação por
// número de série.
package locker

import "sync"

// Keyed é um conjunto de mutexes indexados por chave. O zero value não é
// utilizável; use New.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New cria o conjunto de locks.
func New() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock adquire o lock da chave, bloqueando se outro goroutine o detém.
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock libera o lock da chave e descarta a entrada quando ninguém mais a
// espera, mantendo o mapa pequeno.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("locker: Unlock de chave não travada: " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
