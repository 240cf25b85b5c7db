package program

import "sync"

// dispatchKey is (concrete class id, method encoded-name suffix) — the
// suffix includes parameter types, so it distinguishes overloads.
type dispatchKey struct {
	classID ClassID
	suffix  string
}

// DispatchCache memoizes virtual-call resolution. Classes are immutable
// after loading, so cache invalidation is never required — entries live
// for the program's lifetime.
type DispatchCache struct {
	mu    sync.Mutex
	table map[dispatchKey]*Method
}

// NewDispatchCache returns an empty cache.
func NewDispatchCache() *DispatchCache {
	return &DispatchCache{table: make(map[dispatchKey]*Method)}
}

// Lookup returns the memoized method for (classID, suffix), if present.
func (c *DispatchCache) Lookup(classID ClassID, suffix string) (*Method, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.table[dispatchKey{classID, suffix}]
	return m, ok
}

// Store memoizes the resolved method for (classID, suffix).
func (c *DispatchCache) Store(classID ClassID, suffix string, m *Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table[dispatchKey{classID, suffix}] = m
}

// Resolve walks classID's own method table, then its parent chain, then
// its implemented interfaces, returning the first method whose
// DispatchSuffix matches suffix. This linear walk is also the
// reference algorithm invariant 2 (Dispatch agreement) checks the cache
// against.
func Resolve(prog *Program, classID ClassID, suffix string) (*Method, bool) {
	var ifaces []ClassID
	id := classID
	for id != NoParent {
		cls, ok := prog.GetClass(id)
		if !ok {
			return nil, false
		}
		for _, m := range cls.Methods {
			if m.DispatchSuffix() == suffix {
				return m, true
			}
		}
		ifaces = append(ifaces, cls.Ifaces...)
		id = cls.ParentID
	}
	for _, ifaceID := range ifaces {
		if iface, ok := prog.GetClass(ifaceID); ok {
			for _, m := range iface.Methods {
				if m.DispatchSuffix() == suffix {
					return m, true
				}
			}
		}
	}
	return nil, false
}

// ResolveVirtual is the cache-checked entry point interp.MTHD_CALL uses:
// cache hit, else linear walk, then install.
func ResolveVirtual(prog *Program, classID ClassID, suffix string) (*Method, bool) {
	if m, ok := prog.Dispatch.Lookup(classID, suffix); ok {
		return m, true
	}
	m, ok := Resolve(prog, classID, suffix)
	if ok {
		prog.Dispatch.Store(classID, suffix, m)
	}
	return m, ok
}
