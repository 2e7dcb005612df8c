package atlas

// Observer receives every outcome as soon as it is known. Observe may be
// called from several goroutines when concurrency is enabled.
type Observer interface {
	Observe(Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

func (f ObserverFunc) Observe(o Outcome) { f(o) }
