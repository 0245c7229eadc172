//go:build windows

package escalate

import "errors"

func defaultSend(pid int, sig Signal) error {
	return errors.New("signal delivery is not supported on windows")
}
