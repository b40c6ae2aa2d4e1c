// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     hotkey
// Description: Global keyboard shortcut that toggles recording
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package hotkey

import (
	"fmt"
	"sort"
	"strings"

	"golang.design/x/hotkey"

	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// Modifier is a platform-neutral modifier name
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
	ModAlt   Modifier = "alt"
	ModSuper Modifier = "super"
)

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"win":     ModSuper,
}

var keyMap = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"escape": hotkey.KeyEscape,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// Binding is a parsed shortcut
type Binding struct {
	Key       string
	Modifiers []Modifier
}

// Parse validates a key name and its modifiers. Names are case-insensitive;
// duplicate modifiers collapse.
func Parse(key string, modifiers []string) (Binding, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if _, ok := keyMap[k]; !ok {
		return Binding{}, apperr.Newf(apperr.CodeInvalidConfig, "unsupported hotkey key %q", key).
			WithDetail("field", "hotkey.key")
	}

	seen := make(map[Modifier]bool)
	var mods []Modifier
	for _, m := range modifiers {
		mod, ok := modifierAliases[strings.ToLower(strings.TrimSpace(m))]
		if !ok {
			return Binding{}, apperr.Newf(apperr.CodeInvalidConfig, "unsupported hotkey modifier %q", m).
				WithDetail("field", "hotkey.modifiers")
		}
		if !seen[mod] {
			seen[mod] = true
			mods = append(mods, mod)
		}
	}
	sort.Slice(mods, func(i, j int) bool { return modifierOrder(mods[i]) < modifierOrder(mods[j]) })

	return Binding{Key: k, Modifiers: mods}, nil
}

func modifierOrder(m Modifier) int {
	switch m {
	case ModCtrl:
		return 0
	case ModAlt:
		return 1
	case ModShift:
		return 2
	default:
		return 3
	}
}

// String renders the binding as e.g. "Ctrl+Shift+T"
func (b Binding) String() string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, m := range b.Modifiers {
		parts = append(parts, strings.ToUpper(string(m[:1]))+string(m[1:]))
	}
	parts = append(parts, strings.ToUpper(b.Key))
	return strings.Join(parts, "+")
}

// native converts the binding for the current platform
func (b Binding) native() ([]hotkey.Modifier, hotkey.Key, error) {
	key, ok := keyMap[b.Key]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported key %q", b.Key)
	}
	mods := make([]hotkey.Modifier, 0, len(b.Modifiers))
	for _, m := range b.Modifiers {
		mod, ok := modifierMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("modifier %q not available on this platform", m)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}
