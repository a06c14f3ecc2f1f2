package configstore

import "testing"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingKeyReportsNotOK(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get(42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("Get reported ok=true for a key never set")
	}
}

func TestSetThenGetRoundTrips(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set(7, 1234); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || v != 1234 {
		t.Fatalf("Get = (%d,%v); want (1234,true)", v, ok)
	}
}

func TestSetOverwritesExistingValue(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set(7, 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(7, 2); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}
	v, _, _ := s.Get(7)
	if v != 2 {
		t.Fatalf("value after overwrite = %d; want 2", v)
	}
}

func TestInitSeedsOnlyMissingKeys(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set(1, 99); err != nil {
		t.Fatalf("Set: %v", err)
	}

	defaults := map[uint16]uint16{1: 0, 2: 55}
	if err := s.Init(defaults); err != nil {
		t.Fatalf("Init: %v", err)
	}

	v1, _, _ := s.Get(1)
	if v1 != 99 {
		t.Fatalf("Init overwrote an existing key: got %d; want 99", v1)
	}
	v2, ok2, _ := s.Get(2)
	if !ok2 || v2 != 55 {
		t.Fatalf("Init did not seed missing key 2: got (%d,%v)", v2, ok2)
	}
}
