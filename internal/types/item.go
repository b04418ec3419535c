package types

// Item is a single unit of data flowing through a workflow. Nodes consume and
// produce ordered batches of items. The alias keeps item access ergonomic for
// node implementations that read and write arbitrary fields.
type Item = map[string]any

// Items is an ordered batch of items, the unit a node executor consumes and
// produces.
type Items = []Item

// errorKey marks an item as a per-item failure record. Batch-processing nodes
// (HTTP request, agent) flag individual failures this way instead of aborting
// the whole batch, so downstream nodes can decide how to handle them.
const errorKey = "error"

// ErrorItem builds an error-flagged item from err, carrying any extra fields.
// The extra fields never overwrite the error message itself.
func ErrorItem(err error, fields Item) Item {
	it := Item{}
	for k, v := range fields {
		if k == errorKey {
			continue
		}
		it[k] = v
	}
	it[errorKey] = err.Error()
	return it
}

// IsErrorItem reports whether an item is an error-flagged failure record.
func IsErrorItem(it Item) bool {
	if it == nil {
		return false
	}
	_, ok := it[errorKey]
	return ok
}

// CountErrorItems returns the number of error-flagged items in a batch.
// Execution status reporting uses this to distinguish a run that succeeded
// with embedded item-level errors from a run that failed outright.
func CountErrorItems(batch Items) int {
	n := 0
	for _, it := range batch {
		if IsErrorItem(it) {
			n++
		}
	}
	return n
}

// CloneItem returns a deep copy of an item. Nested maps and slices are copied
// so that downstream nodes cannot mutate an upstream node's recorded output.
func CloneItem(it Item) Item {
	if it == nil {
		return Item{}
	}
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneItems returns a deep copy of a batch.
func CloneItems(batch Items) Items {
	if batch == nil {
		return Items{}
	}
	out := make(Items, 0, len(batch))
	for _, it := range batch {
		out = append(out, CloneItem(it))
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(tv))
		for k, val := range tv {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, 0, len(tv))
		for _, val := range tv {
			s = append(s, cloneValue(val))
		}
		return s
	default:
		return v
	}
}
