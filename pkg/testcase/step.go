package testcase

import (
	"fmt"
	"time"
)

// StepKind identifies the action a Step performs.
type StepKind string

const (
	KindNavigate    StepKind = "navigate"
	KindWait        StepKind = "wait"
	KindScroll      StepKind = "scroll"
	KindClick       StepKind = "click"
	KindType        StepKind = "type"
	KindTap         StepKind = "tap"
	KindSetViewport StepKind = "setViewport"
	KindSleep       StepKind = "sleep"
	// KindFail ends the script with an explicit failure signal
	KindFail StepKind = "fail"
)

// IsInteraction reports whether failures of this kind count towards the
// consecutive interaction failure limit.
func (k StepKind) IsInteraction() bool {
	switch k {
	case KindClick, KindType, KindTap:
		return true
	}
	return false
}

// Valid reports whether k is a known step kind.
func (k StepKind) Valid() bool {
	switch k {
	case KindNavigate, KindWait, KindScroll, KindClick, KindType, KindTap, KindSetViewport, KindSleep, KindFail:
		return true
	}
	return false
}

// Step is one scripted action. Which fields are used depends on Kind.
type Step struct {
	Kind StepKind `yaml:"kind" json:"kind"`

	// Target is a URL for navigate and an element selector otherwise
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	// Frames is the chain of iframe selectors the target lives in
	Frames []string `yaml:"frames,omitempty" json:"frames,omitempty"`

	// Nth selects among multiple matches of Target, zero being the first
	Nth int `yaml:"nth,omitempty" json:"nth,omitempty"`

	// Value is the text typed by a type step
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// X and Y are the viewport point tapped by a tap step without a target
	X int `yaml:"x,omitempty" json:"x,omitempty"`
	Y int `yaml:"y,omitempty" json:"y,omitempty"`

	// DeltaY is the scroll distance; zero scrolls down one viewport height
	DeltaY float64 `yaml:"delta_y,omitempty" json:"delta_y,omitempty"`

	// Width and Height are the new viewport size for setViewport
	Width  int `yaml:"width,omitempty" json:"width,omitempty"`
	Height int `yaml:"height,omitempty" json:"height,omitempty"`

	// Duration is how long a sleep step pauses
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`

	// Timeout overrides the default step timeout
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// FatalOnError aborts the script when this step does not complete
	FatalOnError bool `yaml:"fatal_on_error,omitempty" json:"fatal_on_error,omitempty"`

	// Message is the failure message of a fail step
	Message string `yaml:"message,omitempty" json:"message,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Validate checks that the step carries the fields its kind needs.
func (s Step) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%s step timeout cannot be negative", s.Kind)
	}
	if s.Nth < 0 {
		return fmt.Errorf("%s step nth cannot be negative", s.Kind)
	}

	switch s.Kind {
	case KindNavigate:
		if s.Target == "" {
			return fmt.Errorf("navigate step requires a target URL")
		}
	case KindClick, KindType, KindWait:
		if s.Target == "" {
			return fmt.Errorf("%s step requires a target selector", s.Kind)
		}
	case KindSetViewport:
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("setViewport step requires a positive size, got %dx%d", s.Width, s.Height)
		}
	case KindSleep:
		if s.Duration < 0 {
			return fmt.Errorf("sleep duration cannot be negative")
		}
	case KindFail:
		if s.Message == "" {
			return fmt.Errorf("fail step requires a message")
		}
	}
	return nil
}

// String returns a short human-readable form of the step.
func (s Step) String() string {
	if s.Description != "" {
		return s.Description
	}
	switch s.Kind {
	case KindSleep:
		return fmt.Sprintf("sleep %s", s.Duration)
	case KindSetViewport:
		return fmt.Sprintf("setViewport %dx%d", s.Width, s.Height)
	case KindFail:
		return fmt.Sprintf("fail %q", s.Message)
	case KindTap:
		if s.Target == "" {
			return fmt.Sprintf("tap (%d,%d)", s.X, s.Y)
		}
	case KindScroll:
		if s.Target == "" {
			return fmt.Sprintf("scroll %.0f", s.DeltaY)
		}
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Target)
}

func (s Step) clone() Step {
	if s.Frames != nil {
		s.Frames = append([]string(nil), s.Frames...)
	}
	return s
}

// Fatal returns a copy of the step that aborts the script on failure.
func (s Step) Fatal() Step {
	s = s.clone()
	s.FatalOnError = true
	return s
}

// WithTimeout returns a copy of the step with its own timeout.
func (s Step) WithTimeout(d time.Duration) Step {
	s = s.clone()
	s.Timeout = d
	return s
}

// InFrames returns a copy of the step whose target lives inside the given
// iframe chain, outermost first.
func (s Step) InFrames(frames ...string) Step {
	s = s.clone()
	s.Frames = append([]string(nil), frames...)
	return s
}

// Describe returns a copy of the step with a description.
func (s Step) Describe(description string) Step {
	s = s.clone()
	s.Description = description
	return s
}

// Navigate loads url.
func Navigate(url string) Step {
	return Step{Kind: KindNavigate, Target: url}
}

// Wait waits for selector to become visible.
func Wait(selector string) Step {
	return Step{Kind: KindWait, Target: selector}
}

// Scroll scrolls the page by deltaY pixels. Zero scrolls one viewport
// height down.
func Scroll(deltaY float64) Step {
	return Step{Kind: KindScroll, DeltaY: deltaY}
}

// ScrollTo scrolls selector into view.
func ScrollTo(selector string) Step {
	return Step{Kind: KindScroll, Target: selector}
}

// Click clicks selector.
func Click(selector string) Step {
	return Step{Kind: KindClick, Target: selector}
}

// Type fills selector with value.
func Type(selector, value string) Step {
	return Step{Kind: KindType, Target: selector, Value: value}
}

// Tap taps selector.
func Tap(selector string) Step {
	return Step{Kind: KindTap, Target: selector}
}

// TapAt taps the viewport point (x, y).
func TapAt(x, y int) Step {
	return Step{Kind: KindTap, X: x, Y: y}
}

// SetViewport resizes the viewport.
func SetViewport(width, height int) Step {
	return Step{Kind: KindSetViewport, Width: width, Height: height}
}

// Sleep pauses the script.
func Sleep(d time.Duration) Step {
	return Step{Kind: KindSleep, Duration: d}
}

// Fail ends the script with an explicit failure message.
func Fail(message string) Step {
	return Step{Kind: KindFail, Message: message}
}
