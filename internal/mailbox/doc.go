// Package mailbox models the message boundary between lowered process
// classes and the scheduler that runs them.
//
// Calls to async methods of a process class are lowered to enqueue
// instructions: the caller appends a message to the process mailbox and
// continues. The process takes messages off the mailbox one at a time.
//
// Precondition: a process has exactly one consumer. Process.Drain delivers
// messages strictly serially and refuses to run while another drain of the
// same process is in progress (ErrConcurrentDrain). The move checks of
// async method bodies assume that nothing else mutates self while a
// message is handled; any scheduler driving lowered code must uphold this.
package mailbox
