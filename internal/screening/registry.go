package screening

// Document is a single uploaded candidate CV. The name is the unique key
// inside the registry.
type Document struct {
	Name    string
	Content []byte
}

// JobDescription is the vacancy text the CVs are matched against. There is
// only one per session and a new upload replaces it wholesale.
type JobDescription struct {
	DisplayName string
	Content     []byte
}

// Registry holds the uploaded CVs deduplicated by name. Insertion order of
// first-seen names is preserved across merges.
type Registry struct {
	byName map[string]*Document
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Document),
	}
}

// Add merges documents into the registry. On a name collision the
// later-added document replaces the earlier one, keeping the original
// position in the order.
func (r *Registry) Add(docs ...*Document) {
	for _, doc := range docs {
		if doc == nil || doc.Name == "" {
			continue
		}
		if _, ok := r.byName[doc.Name]; !ok {
			r.order = append(r.order, doc.Name)
		}
		r.byName[doc.Name] = doc
	}
}

// Remove deletes one document by name. Removing an unknown name is a no-op.
func (r *Registry) Remove(name string) {
	if _, ok := r.byName[name]; !ok {
		return
	}
	delete(r.byName, name)
	for idx, stored := range r.order {
		if stored == name {
			r.order = append(r.order[:idx], r.order[idx+1:]...)
			break
		}
	}
}

// List returns the documents in stored order.
func (r *Registry) List() []*Document {
	docs := make([]*Document, 0, len(r.order))
	for _, name := range r.order {
		docs = append(docs, r.byName[name])
	}
	return docs
}

// Get returns the document with the given name, or nil.
func (r *Registry) Get(name string) *Document {
	return r.byName[name]
}

// Names returns the stored names in order. This is the projection persisted
// into the session state.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) Len() int {
	return len(r.order)
}
