package backend

import "testing"

func TestMemoryPutGetDelete(t *testing.T) {
	m := NewMemory()

	if _, found, _ := m.Get([]byte("k")); found {
		t.Fatal("expected key absent before Put")
	}

	if err := m.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value, found, err := m.Get([]byte("k"))
	if err != nil || !found || string(value) != "v" {
		t.Fatalf("Get: value=%q found=%v err=%v", value, found, err)
	}

	if err := m.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := m.Get([]byte("k")); found {
		t.Fatal("expected key absent after Delete")
	}
}

func TestMemoryBatch(t *testing.T) {
	m := NewMemory()
	err := m.Batch([]Op{
		{Kind: OpPut, Key: []byte("a"), Value: []byte("1")},
		{Kind: OpPut, Key: []byte("b"), Value: []byte("2")},
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if m.Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Count())
	}

	err = m.Batch([]Op{{Kind: OpDelete, Key: []byte("a")}})
	if err != nil {
		t.Fatalf("Batch delete: %v", err)
	}
	if m.Count() != 1 {
		t.Fatalf("expected 1 entry after delete, got %d", m.Count())
	}
}

func TestMemoryIterateStopsEarly(t *testing.T) {
	m := NewMemory()
	for _, k := range []string{"a", "b", "c"} {
		m.Put([]byte(k), []byte("v"))
	}

	seen := 0
	m.Iterate(func(key []byte) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("expected iteration to stop after first key, saw %d", seen)
	}
}
