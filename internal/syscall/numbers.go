// Package syscall implements component J: the single dispatch table that
// both a directly hosted Go kernel thread (no WASM involved) and the WASM
// host-function bridge (package guest) call through to reach capability,
// IPC, scheduling, and memory operations. Despite the name this package
// never imports the standard library's syscall package; "syscall" here
// names the kernel's own ABI, not the host OS's.
//
// Two call paths exist, matching spec section 6:
//   - the numbered trap table below (0-12), used by kernel-thread actors
//     written directly in Go and by Dispatch;
//   - four named host-function imports used only by WASM guests
//     (sys_cap_send, sys_cap_recv, sys_cap_mem_read, sys_cap_mem_write),
//     which call straight into Gateway's CapSend/CapRecv/MemRead/MemWrite and
//     never go through a syscall number.
package syscall

// Numbers, stable per spec section 6. Never renumber an existing entry:
// guest or kernel-thread code compiled against an older layout would
// silently invoke the wrong operation.
const (
	SysLog uint32 = iota
	SysExit
	SysYield
	SysSpawn
	SysRead
	SysPipeCreate
	SysPipeWrite
	SysPipeRead
	SysPipeClose
	SysTime
	SysSleep
	SysFutex
	SysReadEvent
)
