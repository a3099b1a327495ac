package config

import (
	"fmt"
)

// Specification of requested card rendering mode. Raw mode shows note fields
// as a two column table, model mode renders note through its model templates.
type RenderMode int

const (
	RenderModeRaw RenderMode = iota
	RenderModeModel
)

var renderModeNames = []string{"raw", "model"}

func RenderModeNames() []string {
	out := make([]string, len(renderModeNames))
	copy(out, renderModeNames)
	return out
}

func ParseRenderMode(name string) (RenderMode, error) {
	for i, n := range renderModeNames {
		if n == name {
			return RenderMode(i), nil
		}
	}
	return RenderModeRaw, fmt.Errorf("unknown render mode %q", name)
}

func (m RenderMode) String() string {
	if m < 0 || int(m) >= len(renderModeNames) {
		// this should never happen
		panic("unsupported render mode requested")
	}
	return renderModeNames[m]
}

func (m RenderMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *RenderMode) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	v, err := ParseRenderMode(name)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
