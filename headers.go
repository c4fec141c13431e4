package mailwright

// Headers is the external message-headers collaborator the core consumes.
// It never validates or parses RFC 5322 syntax itself; that is the
// caller's responsibility.
type Headers interface {
	// GenerateRaw returns the already CRLF-terminated headers block,
	// including the trailing blank-line separator before the body.
	GenerateRaw() string

	// HasHeader reports whether a header with the given name is present.
	HasHeader(name string) bool

	// Get returns the value of the first header with the given name, or
	// an empty string if absent.
	Get(name string) string

	// MultiValue returns every value associated with the given header
	// name, in the order they appear.
	MultiValue(name string) []string
}

// MapHeaders is a reference Headers implementation backed by an ordered
// list of name/value pairs, suitable for tests and simple callers.
type MapHeaders struct {
	order  []string
	values map[string][]string
}

// NewMapHeaders builds a MapHeaders from name/value pairs in the order
// given; later entries with the same name are treated as additional
// values (e.g. multiple To headers).
func NewMapHeaders(pairs ...[2]string) *MapHeaders {
	h := &MapHeaders{values: make(map[string][]string)}
	for _, p := range pairs {
		name, value := p[0], p[1]
		if _, seen := h.values[name]; !seen {
			h.order = append(h.order, name)
		}
		h.values[name] = append(h.values[name], value)
	}
	return h
}

func (h *MapHeaders) GenerateRaw() string {
	var out string
	for _, name := range h.order {
		for _, v := range h.values[name] {
			out += name + ": " + v + "\r\n"
		}
	}
	return out + "\r\n"
}

func (h *MapHeaders) HasHeader(name string) bool {
	_, ok := h.values[name]
	return ok
}

func (h *MapHeaders) Get(name string) string {
	vs := h.values[name]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func (h *MapHeaders) MultiValue(name string) []string {
	return h.values[name]
}
