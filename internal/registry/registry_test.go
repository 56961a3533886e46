package registry

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type memStore struct {
	ids     []int64
	writeEr error
}

func (m *memStore) Receivers() []int64 { return append([]int64(nil), m.ids...) }

func (m *memStore) AppendReceiver(id int64) error {
	m.ids = append(m.ids, id)
	return m.writeEr
}

func (m *memStore) RemoveReceiverAt(i int) error {
	if i < 0 || i >= len(m.ids) {
		return fmt.Errorf("index %d out of range", i)
	}
	m.ids = append(m.ids[:i], m.ids[i+1:]...)
	return m.writeEr
}

func TestTuneDetuneSequence(t *testing.T) {
	t.Parallel()
	r := New(&memStore{})
	for _, id := range []int64{1, 2, 3} {
		if err := r.Add(id); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if err := r.Remove(2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Add(4); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := r.List(); !reflect.DeepEqual(got, []int64{1, 3, 4}) {
		t.Fatalf("List=%v", got)
	}
}

func TestDuplicateAndMissing(t *testing.T) {
	t.Parallel()
	r := New(&memStore{ids: []int64{1, 3}})
	if err := r.Add(1); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("Add dup err=%v", err)
	}
	if err := r.Remove(99); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Remove missing err=%v", err)
	}
	if got := r.List(); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Fatalf("List changed: %v", got)
	}
}

func TestAddSurfacesWriteError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	st := &memStore{writeEr: boom}
	r := New(st)
	if err := r.Add(5); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if !r.Contains(5) {
		t.Fatal("receiver should stay registered in memory")
	}
}
