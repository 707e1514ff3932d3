// Package task manages background compression work: dispatching pending
// tasks from the ledger, running one worker per task through the
// pending/processing/terminal state machine, and sweeping tasks abandoned
// mid-processing. Dispatch is fire-and-forget so HTTP callers never wait
// on compression.
package task
