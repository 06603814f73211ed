//go:build !unix

package proc

const supported = false

func closeOnExec(int) {}
