package vulkan

// table maps the opaque handles handed out through gpu.Device to the driver
// objects behind them. Handle 0 is never issued.
type table[T any] struct {
	next    uint64
	objects map[uint64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{objects: make(map[uint64]T)}
}

func (t *table[T]) add(object T) uint64 {
	t.next++
	t.objects[t.next] = object
	return t.next
}

func (t *table[T]) get(id uint64) (T, bool) {
	object, ok := t.objects[id]
	return object, ok
}

func (t *table[T]) remove(id uint64) (T, bool) {
	object, ok := t.objects[id]
	if ok {
		delete(t.objects, id)
	}
	return object, ok
}

func (t *table[T]) len() int {
	return len(t.objects)
}

// each visits every live object. It is only used on shutdown.
func (t *table[T]) each(visit func(id uint64, object T)) {
	for id, object := range t.objects {
		visit(id, object)
	}
}
