//go:build !windows

package escalate

import "syscall"

func defaultSend(pid int, sig Signal) error {
	return syscall.Kill(pid, syscall.Signal(sig))
}
