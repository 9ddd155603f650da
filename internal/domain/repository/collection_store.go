package repository

import "context"

// AnyVersion en Write.ExpectedVersion desactiva la comprobación de versión (escritura incondicional).
const AnyVersion int64 = -1

// Snapshot valor de una colección leído del store. Una clave ausente tiene Payload nil y Version 0.
type Snapshot struct {
	Key     string
	Payload []byte // arreglo JSON serializado
	Version int64
}

// Exists informa si la clave tenía valor en el store.
func (s Snapshot) Exists() bool { return s.Version > 0 }

// Write escritura de una colección completa dentro de un Commit.
// Payload nil convierte la escritura en una aserción: solo se comprueba la versión.
type Write struct {
	Key             string
	Payload         []byte
	ExpectedVersion int64
}

// CollectionStore define el puerto de persistencia de colecciones completas (DIP).
// Cada colección es un arreglo JSON bajo una clave; toda escritura reemplaza el arreglo entero.
// Cada escritura exitosa deja version = anterior + 1 (ausente = 0).
type CollectionStore interface {
	// Load lee varias claves como una instantánea consistente. Siempre devuelve una entrada por clave.
	Load(ctx context.Context, keys ...string) (map[string]Snapshot, error)
	// Commit aplica todas las escrituras de forma atómica. Si alguna ExpectedVersion no coincide
	// no se aplica ninguna y se devuelve un error que envuelve domain.ErrConflict.
	// Devuelve la nueva versión de cada clave escrita (las aserciones no aparecen).
	Commit(ctx context.Context, writes ...Write) (map[string]int64, error)
	Close() error
}
