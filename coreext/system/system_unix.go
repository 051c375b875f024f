//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package system

import (
	"bytes"
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"
)

func initPV() {
	var uname unix.Utsname
	if unix.Uname(&uname) == nil {
		v, r := uname.Version[:], uname.Release[:]
		platformVersion = fmt.Sprintf("%s.%s", bytes.Trim(v, "\x00"), bytes.Trim(r, "\x00"))
	}
	// If uname failed, we don't have anything else to try.
}

func shell(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}
