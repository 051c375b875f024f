// Package coreext imports every core extension for side effects. Programs
// that want the complete function library import this package.
package coreext

import (
	// importing for side effects
	_ "github.com/zephyrtronium/clips/coreext/collector"
	_ "github.com/zephyrtronium/clips/coreext/date"
	_ "github.com/zephyrtronium/clips/coreext/storage"
	_ "github.com/zephyrtronium/clips/coreext/strings"
	_ "github.com/zephyrtronium/clips/coreext/system"
)
