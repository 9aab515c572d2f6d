// Package common holds small, domain-agnostic building blocks shared across
// the CDP engine, stability pool, and liquidation coordinator: the module
// pause switch and the per-address rate quota.
package common

import "errors"

// ErrModulePaused is returned by Guard when the named module has been
// administratively paused (admin.set_paused).
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is currently paused. The admin store
// implements this so engines can check it without depending on the store
// package directly.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused if module is paused in p. A nil PauseView or
// empty module name is treated as never paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
