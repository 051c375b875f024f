package system

import (
	"fmt"
	"os/exec"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

func initPV() {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		// Not NT, or the registry is unavailable. GetVersion still works.
		initWinVerGV()
		return
	}
	defer k.Close()
	platformVersion, _, err = k.GetStringValue("CurrentVersion")
	if err != nil {
		initWinVerGV()
	}
}

func initWinVerGV() {
	v, err := windows.GetVersion()
	if err != nil {
		platformVersion = ""
		return
	}
	platformVersion = fmt.Sprintf("%d.%d", v&0xff, v>>8&0xff)
}

func shell(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}
