package patterns

import "time"

// DefaultTimeout bounds each outbound provider call. Calls are single
// best-effort requests with no automatic retry; the timeout is the only
// client-side failure policy.
const DefaultTimeout = 10 * time.Second
