// Package internal holds the moving parts of the bridged store: the work
// item type that callers wait on, the operation vocabulary the worker
// understands, and the lock-free queue connecting the two.
//
// An Item is created per call, pushed onto the Queue and resolved exactly
// once by the worker through its buffered completion slot. The pending ->
// running / pending -> cancelled CAS on the item decides every
// cancellation race: whoever wins the CAS determines whether the engine
// sees the operation at all.
//
// The Queue is a lock-free MPSC list. The linearization point of Push (the
// CAS linking the node) defines the FIFO order the single consumer
// observes, so "enqueue order" is a well-defined total order even under
// concurrent pushes. Closing the queue can atomically append one final
// item, which the bridged store uses to make its close operation the last
// one the engine executes.
package internal
