//go:build linux

package blockio

import "golang.org/x/sys/unix"

func directFlag() int { return unix.O_DIRECT }
