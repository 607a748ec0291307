package glayer

import (
	"encoding/hex"
	"io"
	"sync"

	"github.com/google/uuid"
)

// ID namespaces the generated shader symbols of a single layer instance.
// It carries no meaning beyond being unique within the process.
type ID string

// IDAllocator issues identifiers that are distinct from every identifier
// it issued before.
type IDAllocator struct {
	mu     sync.Mutex
	rand   io.Reader
	issued map[ID]struct{}
}

var defaultAllocator IDAllocator

// NewID returns a process-unique identifier from the package allocator.
func NewID() ID {
	return defaultAllocator.Allocate()
}

// NewIDAllocator returns an allocator drawing randomness from r.
// A nil r uses the default UUID random source.
func NewIDAllocator(r io.Reader) *IDAllocator {
	return &IDAllocator{rand: r}
}

// Allocate returns a new identifier. Identifiers are a letter followed by 8 hex
// digits so they are valid inside GLSL identifiers. Allocate panics if the
// random source fails.
func (a *IDAllocator) Allocate() ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.issued == nil {
		a.issued = make(map[ID]struct{})
	}
	var buf [9]byte
	buf[0] = 'l'
	for {
		var u uuid.UUID
		if a.rand == nil {
			u = uuid.New()
		} else {
			u = uuid.Must(uuid.NewRandomFromReader(a.rand))
		}
		hex.Encode(buf[1:], u[:4])
		id := ID(buf[:])
		if _, collision := a.issued[id]; !collision {
			a.issued[id] = struct{}{}
			return id
		}
	}
}

// Issued returns the amount of identifiers allocated.
func (a *IDAllocator) Issued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.issued)
}

// AppendUniformName appends the uniform symbol for key: u_<id>_<key>.
func AppendUniformName(b []byte, id ID, key string) []byte {
	return appendMangled(b, 'u', id, key)
}

// AppendVaryingName appends the varying symbol for key: v_<id>_<key>.
func AppendVaryingName(b []byte, id ID, key string) []byte {
	return appendMangled(b, 'v', id, key)
}

// AppendLocalName appends the function-local symbol for key: f_<id>_<key>.
func AppendLocalName(b []byte, id ID, key string) []byte {
	return appendMangled(b, 'f', id, key)
}

// UniformName returns the uniform symbol for key. See [AppendUniformName].
func UniformName(id ID, key string) string {
	return string(AppendUniformName(nil, id, key))
}

func appendMangled(b []byte, prefix byte, id ID, key string) []byte {
	b = append(b, prefix, '_')
	b = append(b, id...)
	b = append(b, '_')
	b = append(b, key...)
	return b
}
