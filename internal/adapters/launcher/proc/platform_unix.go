//go:build unix

package proc

import "syscall"

// supported reports whether reply descriptors can be handed to children.
const supported = true

func closeOnExec(fd int) {
	syscall.CloseOnExec(fd)
}
