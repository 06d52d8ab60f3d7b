package document

// Flatten returns docs plus every document reachable through their metadata
// (values of type *Document or []*Document), each once, in discovery order.
func Flatten(docs []*Document) []*Document {
	seen := make(map[*Document]struct{}, len(docs))
	out := make([]*Document, 0, len(docs))
	var visit func(d *Document)
	visit = func(d *Document) {
		if d == nil {
			return
		}
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		out = append(out, d)
		for _, k := range d.meta.Keys() {
			raw, _ := d.meta.Raw(k)
			switch v := raw.(type) {
			case *Document:
				visit(v)
			case []*Document:
				for _, child := range v {
					visit(child)
				}
			}
		}
	}
	for _, d := range docs {
		visit(d)
	}
	return out
}
