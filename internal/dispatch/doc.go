// Package dispatch sends one navigation goal and resolves its outcome.
//
// A Dispatcher is single use: Submit starts the goal, Wait blocks until the
// outcome is known. The callback chain of an action client is expressed as a
// state machine owned by one goroutine:
//
//	idle → waiting_server → pending_acceptance → active → done
//
// Terminal branches, each of which writes the outcome exactly once:
//   - Server not advertised within the server timeout → not reached
//   - Goal rejected → not reached, the result is never requested
//   - Terminal status succeeded → reached
//   - Any other terminal status → not reached
//   - Bridge connection lost after submission → not reached
//
// Feedback only produces log lines, events and metrics. There is no timeout on
// the result and no cancellation is sent to the server; cancelling the context
// abandons the wait and leaves the outcome unknown.
package dispatch
