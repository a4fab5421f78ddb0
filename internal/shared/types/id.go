package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies an entity. Stored as a UUID string so it round-trips
// through both JSON documents and Postgres text columns unchanged.
type ID string

// NewID generates a random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// resourceNamespace seeds UUIDv5 generation for deterministic IDs.
var resourceNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewDeterministicID derives an ID from a namespace and name. The same
// inputs always produce the same ID, so directory entries keep their
// identity when the source file is re-imported.
func NewDeterministicID(namespace, name string) ID {
	return ID(uuid.NewSHA1(resourceNamespace, []byte(namespace+":"+name)).String())
}

func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return string(id), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	return nil
}
