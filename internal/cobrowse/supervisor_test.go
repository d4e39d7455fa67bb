package cobrowse

import "testing"

func TestSupervisorRunsUntilPanic(t *testing.T) {
	s := NewSupervisor(nil, nil)
	ran := 0
	s.Do(func() { ran++ })
	if s.Disabled() {
		t.Fatal("disabled without panic")
	}

	s.Do(func() { panic("boom") })
	if !s.Disabled() {
		t.Fatal("not disabled after panic")
	}

	s.Do(func() { ran++ })
	if ran != 1 {
		t.Errorf("ran = %d, want 1 (disabled supervisor must not run)", ran)
	}
}

func TestSupervisorTeardownRunsOnce(t *testing.T) {
	teardowns := 0
	s := NewSupervisor(nil, func() { teardowns++ })

	s.Do(func() { panic("first") })
	s.Do(func() { panic("unreachable") })

	if teardowns != 1 {
		t.Errorf("teardowns = %d, want 1", teardowns)
	}
}

func TestSupervisorTeardownPanicSwallowed(t *testing.T) {
	s := NewSupervisor(nil, func() { panic("teardown blew up too") })
	// Must not propagate.
	s.Do(func() { panic("boom") })
	if !s.Disabled() {
		t.Fatal("not disabled")
	}
}

func TestSupervisorSetOnDisable(t *testing.T) {
	s := NewSupervisor(nil, nil)
	called := false
	s.SetOnDisable(func() { called = true })
	s.Do(func() { panic("boom") })
	if !called {
		t.Error("replacement teardown not called")
	}
}
