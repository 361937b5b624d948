// Package pool shares expensive persistent device connections across concurrent callers.
//
// A Pool is generic over a Connector, the capability implemented once per device kind.
// Connectors embed LeaseState, which carries the lease bookkeeping maintained by the pool:
//
//	type deviceConn struct {
//	    pool.LeaseState
//	    ...
//	}
//
// Acquire lends an idle connector, creates a new one while the pool is below its bound, or
// waits for a release until the caller's deadline expires. Release hands the connector back;
// releasing twice is harmless. Connectors that went offline are closed and dropped instead
// of being lent again, and Evict removes a connector immediately, which is how a connection
// notifies the pool of its offline transition.
//
// At no instant does a pool hold more than its configured number of open connectors.
package pool
