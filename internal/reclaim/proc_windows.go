//go:build windows

package reclaim

import "os"

// Windows has no SIGTERM; both steps of the escalation resolve to Kill.

func terminateProcess(pid int) {
	killProcess(pid)
}

func killProcess(pid int) {
	if pid <= 0 {
		return
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = p.Kill()
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
