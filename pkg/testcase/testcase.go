package testcase

import (
	"errors"
	"fmt"
)

// TestCase is an ordered script of steps followed by assertions. Build it
// with New; the engine only ever reads it.
type TestCase struct {
	ID         string
	EntryURL   string
	Steps      []Step
	Assertions []Assertion
}

// New validates and builds a test case. The steps and assertions are copied,
// so later changes to the caller's slices do not affect it.
func New(id, entryURL string, steps []Step, assertions []Assertion) (*TestCase, error) {
	tc := &TestCase{
		ID:         id,
		EntryURL:   entryURL,
		Steps:      cloneSteps(steps),
		Assertions: append([]Assertion(nil), assertions...),
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// MustNew is like New but panics on an invalid test case.
func MustNew(id, entryURL string, steps []Step, assertions []Assertion) *TestCase {
	tc, err := New(id, entryURL, steps, assertions)
	if err != nil {
		panic(err)
	}
	return tc
}

// Validate checks the test case and every step in it.
func (tc *TestCase) Validate() error {
	if tc.ID == "" {
		return errors.New("test case ID is required")
	}
	if tc.EntryURL == "" && len(tc.Steps) == 0 {
		return fmt.Errorf("test case %s has neither an entry URL nor steps", tc.ID)
	}
	for i, s := range tc.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("test case %s step %d: %w", tc.ID, i, err)
		}
	}
	for i, a := range tc.Assertions {
		if a.Check == nil {
			return fmt.Errorf("test case %s assertion %d (%q) has no check", tc.ID, i, a.Description)
		}
	}
	return nil
}

// Clone returns a deep copy of the test case.
func (tc *TestCase) Clone() *TestCase {
	return &TestCase{
		ID:         tc.ID,
		EntryURL:   tc.EntryURL,
		Steps:      cloneSteps(tc.Steps),
		Assertions: append([]Assertion(nil), tc.Assertions...),
	}
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.clone()
	}
	return out
}
