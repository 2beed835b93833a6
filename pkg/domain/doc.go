/*
Package domain contains the core value types of the Parley engine: nodes,
function descriptors, handler outcomes, session state, the availability
slot cache and the failure ledger.

Everything here is transport-agnostic and side-effect free. Nodes are
immutable values built fresh by registered builders; session state is an
explicit container threaded into every handler call, never ambient
process state.
*/
package domain
